package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/gene-expression-sim/model"
)

func TestScheduledEventDecode(t *testing.T) {
	cases := []struct {
		name string
		ev   ScheduledEvent
		want Action
	}{
		{
			name: "polymerase affinity",
			ev:   ScheduledEvent{Action: ActionSetPolymeraseAffinity, Args: map[string]any{"gene": "lac", "affinity": 0.25}},
			want: SetPolymeraseAffinityAction{Gene: "lac", Affinity: 0.25},
		},
		{
			name: "factor affinity from a string",
			ev:   ScheduledEvent{Action: ActionSetTranscriptionFactorAffinity, Args: map[string]any{"config": "act", "affinity": "0.7"}},
			want: SetTranscriptionFactorAffinityAction{Config: "act", Affinity: 0.7},
		},
		{
			name: "factor count",
			ev:   ScheduledEvent{Action: ActionSetTranscriptionFactorCount, Args: map[string]any{"config": "act", "count": 0}},
			want: SetTranscriptionFactorCountAction{Config: "act", Count: 0},
		},
		{
			name: "add ribosomes",
			ev:   ScheduledEvent{Action: ActionAddBiomolecules, Args: map[string]any{"kind": "ribosome", "count": 2}},
			want: AddBiomoleculesAction{Kind: "ribosome", Count: 2},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ev.Decode()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScheduledEventDecodeRejects(t *testing.T) {
	cases := map[string]ScheduledEvent{
		"unknown action":        {Action: "explode"},
		"missing gene":          {Action: ActionSetPolymeraseAffinity, Args: map[string]any{"affinity": 0.2}},
		"unused argument":       {Action: ActionSetPolymeraseAffinity, Args: map[string]any{"gene": "lac", "affinity": 0.2, "extra": 1}},
		"mistyped argument":     {Action: ActionSetTranscriptionFactorCount, Args: map[string]any{"config": "act", "count": "many"}},
		"negative count":        {Action: ActionSetTranscriptionFactorCount, Args: map[string]any{"config": "act", "count": -1}},
		"unaddable kind":        {Action: ActionAddBiomolecules, Args: map[string]any{"kind": "protein", "count": 1}},
		"unknown kind":          {Action: ActionAddBiomolecules, Args: map[string]any{"kind": "widget", "count": 1}},
		"factor without config": {Action: ActionAddBiomolecules, Args: map[string]any{"kind": "transcription_factor", "count": 1}},
		"zero count":            {Action: ActionAddBiomolecules, Args: map[string]any{"kind": "ribosome", "count": 0}},
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ev.Decode()
			require.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestScheduleDueInTimeOrder(t *testing.T) {
	s := NewSchedule([]ScheduledEvent{
		{At: 5, Action: "b"},
		{At: 1, Action: "a"},
		{At: 5, Action: "c"},
	}, nil)
	assert.Equal(t, 3, s.Remaining())
	assert.Empty(t, s.Due(0.5))

	due := s.Due(1)
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].Action)

	due = s.Due(10)
	require.Len(t, due, 2)
	assert.Equal(t, "b", due[0].Action, "same-time events keep file order")
	assert.Equal(t, "c", due[1].Action)
	assert.Zero(t, s.Remaining())
	assert.Empty(t, s.Due(100))
}

func TestScheduleApplyDue(t *testing.T) {
	e := newTestEngine(t, testEngineConfig())
	s := NewSchedule([]ScheduledEvent{
		{At: 0.5, Action: ActionSetTranscriptionFactorCount, Args: map[string]any{"config": "act", "count": 3}},
		{At: 0.5, Action: ActionSetPolymeraseAffinity, Args: map[string]any{"gene": "missing", "affinity": 0.3}},
		{At: 0.5, Action: ActionAddBiomolecules, Args: map[string]any{"kind": "transcription_factor", "config": "act", "count": 1}},
		{At: 2, Action: ActionAddBiomolecules, Args: map[string]any{"kind": "mrna_destroyer", "count": 2}},
	}, nil)
	ctx := context.Background()

	require.NoError(t, s.ApplyDue(ctx, e))
	assert.Zero(t, e.Count(model.KindTranscriptionFactor))

	e.Step(0.5)
	err := s.ApplyDue(ctx, e)
	require.Error(t, err, "the failing event is reported")
	assert.Equal(t, 4, e.Count(model.KindTranscriptionFactor), "events after a failure still apply")
	assert.Equal(t, 1, s.Remaining())

	e.Step(1.5)
	require.NoError(t, s.ApplyDue(ctx, e))
	assert.Equal(t, 2, e.Count(model.KindMessengerRnaDestroyer))
	assert.Zero(t, s.Remaining())
}

func TestScheduleOnApplied(t *testing.T) {
	e := newTestEngine(t, testEngineConfig())
	s := NewSchedule([]ScheduledEvent{
		{At: 0, Action: ActionSetTranscriptionFactorCount, Args: map[string]any{"config": "act", "count": 1}},
		{At: 0, Action: "explode"},
	}, nil)

	var seen []string
	var failures int
	s.OnApplied(func(ev ScheduledEvent, err error) {
		seen = append(seen, ev.Action)
		if err != nil {
			failures++
		}
	})
	s.OnApplied(nil)

	require.Error(t, s.ApplyDue(context.Background(), e))
	assert.Equal(t, []string{ActionSetTranscriptionFactorCount, "explode"}, seen)
	assert.Equal(t, 1, failures)
}
