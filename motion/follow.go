package motion

import "github.com/signalsfoundry/gene-expression-sim/model"

// TranslationTrack is the mRNA as seen by a translating ribosome: the point
// where the ribosome's channel sits at the current translation progress. ok is
// false once the mRNA is gone.
type TranslationTrack interface {
	TranslationPoint() (p model.Vec2, ok bool)
}

// RibosomeTranslatingRna keeps a ribosome on its mRNA.
type RibosomeTranslatingRna struct {
	Track         TranslationTrack
	ChannelOffset model.Vec2
}

// Advance follows the track, holding position if the track has vanished.
func (s RibosomeTranslatingRna) Advance(in Input) (model.Vec3, Strategy) {
	p, ok := s.Track.TranslationPoint()
	if !ok {
		return in.Position, s
	}
	return model.At(p.Sub(s.ChannelOffset), 0), s
}

// Name identifies the strategy.
func (RibosomeTranslatingRna) Name() string { return "ribosome_translating_rna" }

// FollowAttachmentSite keeps an attached agent on its site, which may move
// while the DNA strands separate.
type FollowAttachmentSite struct {
	Site   PointSource
	Offset model.Vec2
}

// Advance snaps to the site.
func (s FollowAttachmentSite) Advance(in Input) (model.Vec3, Strategy) {
	return model.At(s.Site.Point().Sub(s.Offset), 0), s
}

// Name identifies the strategy.
func (FollowAttachmentSite) Name() string { return "follow_attachment_site" }

// FollowPoint keeps an agent at Offset from a moving point, keeping its depth.
type FollowPoint struct {
	Target PointSource
	Offset model.Vec2
}

// Advance snaps to the target.
func (s FollowPoint) Advance(in Input) (model.Vec3, Strategy) {
	return model.At(s.Target.Point().Add(s.Offset), in.Position.Z), s
}

// Name identifies the strategy.
func (FollowPoint) Name() string { return "follow_point" }
