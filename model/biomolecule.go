package model

import "fmt"

// AgentID identifies a live biomolecule. The zero value means "nobody" and is
// what an unoccupied attachment site records.
type AgentID uint64

// NoAgent is the empty occupant.
const NoAgent AgentID = 0

// MoleculeKind indicates which family a biomolecule belongs to.
type MoleculeKind int

const (
	KindUnknown MoleculeKind = iota
	KindRnaPolymerase
	KindTranscriptionFactor
	KindRibosome
	KindMessengerRnaDestroyer
	KindMessengerRna
	KindMessengerRnaFragment
	KindProtein
)

var kindNames = map[MoleculeKind]string{
	KindUnknown:               "unknown",
	KindRnaPolymerase:         "rna_polymerase",
	KindTranscriptionFactor:   "transcription_factor",
	KindRibosome:              "ribosome",
	KindMessengerRnaDestroyer: "mrna_destroyer",
	KindMessengerRna:          "mrna",
	KindMessengerRnaFragment:  "mrna_fragment",
	KindProtein:               "protein",
}

func (k MoleculeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k MoleculeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText accepts a kind name.
func (k *MoleculeKind) UnmarshalText(b []byte) error {
	parsed, err := ParseMoleculeKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseMoleculeKind maps a kind name back to its constant.
func ParseMoleculeKind(s string) (MoleculeKind, error) {
	for k, name := range kindNames {
		if name == s && k != KindUnknown {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown molecule kind %q", s)
}

// ProteinKind names the protein a gene codes for (e.g. "A", "B", "C").
type ProteinKind string

// TranscriptionFactorConfig describes one family of transcription factors.
// Positive factors enable transcription of the genes they dock on, negative
// ones block it.
type TranscriptionFactorConfig struct {
	Name     string
	Positive bool
	// Affinity is the affinity of the docking sites reserved for this config.
	Affinity float64
}
