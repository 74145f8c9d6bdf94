// Package resolver tags raw events with canonical identities and organizations.
package resolver

import (
	"context"

	"github.com/okian/revstat/internal/domain/identity"
	"github.com/okian/revstat/internal/domain/model"
	"github.com/okian/revstat/pkg/logger"
	"github.com/okian/revstat/pkg/metrics"
)

// Resolver applies an identity map to events. It holds no per-subject state;
// callers supply the subject's authorship.
type Resolver struct {
	idmap   *identity.Map
	log     logger.Logger
	metrics bool
}

// New creates a Resolver over an immutable identity map.
func New(m *identity.Map, opts ...Option) *Resolver {
	r := &Resolver{idmap: m, metrics: true}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("resolver")
	}
	return r
}

// Map returns the identity map the resolver applies.
func (r *Resolver) Map() *identity.Map { return r.idmap }

// Resolve tags one event. The result is a pure function of the event, the
// authorship and the map. Unparseable or unmapped addresses resolve to the
// identity sentinels, never to an error.
func (r *Resolver) Resolve(ev model.Event, author model.Authorship) (model.ResolvedEvent, error) {
	if r == nil || r.idmap == nil {
		if r != nil && r.metrics {
			metrics.RecordResolutionError()
		}
		return model.ResolvedEvent{}, ErrResolution
	}

	if role, ok := model.ParseRole(string(ev.Role)); ok {
		ev.Role = role
	}

	id, org := r.idmap.Resolve(ev.RawAddress, ev.RelayOverride)
	out := model.ResolvedEvent{
		Event:        ev,
		Identity:     id,
		Organization: org,
		Author:       author,
		SelfReview:   ev.Role.IsReview() && author.Known() && id.Same(author.Identity),
	}

	if r.metrics {
		r.record(ev, out)
	}
	return out, nil
}

func (r *Resolver) record(ev model.Event, out model.ResolvedEvent) {
	metrics.RecordEventResolved(string(ev.Role))
	if out.Identity.IsUnmatched() {
		metrics.RecordUnmatchedIdentity()
	}
	if out.Organization.IsUnknown() {
		metrics.RecordUnknownOrganization()
	}
	if out.Identity.Relay {
		metrics.RecordUnremappedRelay()
	}
	if ev.RelayOverride != "" && r.idmap.IsRelay(ev.RawAddress) {
		metrics.RecordRelayRemap()
	}
}

// Authorships builds the subject -> author arena for a window. The earliest
// author event of a subject wins; equal timestamps are settled by the smaller
// identity key so the result does not depend on input order.
func (r *Resolver) Authorships(events []model.Event) (map[string]model.Authorship, error) {
	if r == nil || r.idmap == nil {
		return nil, ErrResolution
	}

	type candidate struct {
		ev     model.Event
		author model.Authorship
	}
	arena := make(map[string]candidate)

	for _, ev := range events {
		role, _ := model.ParseRole(string(ev.Role))
		if role != model.RoleAuthor || ev.SubjectID == "" {
			continue
		}
		id, org := r.idmap.Resolve(ev.RawAddress, ev.RelayOverride)
		c := candidate{ev: ev, author: model.Authorship{Identity: id, Organization: org}}

		cur, ok := arena[ev.SubjectID]
		switch {
		case !ok:
			arena[ev.SubjectID] = c
		case ev.Timestamp.Before(cur.ev.Timestamp):
			arena[ev.SubjectID] = c
		case ev.Timestamp.Equal(cur.ev.Timestamp) && id.Key() < cur.author.Identity.Key():
			arena[ev.SubjectID] = c
		}
	}

	out := make(map[string]model.Authorship, len(arena))
	for subject, c := range arena {
		out[subject] = c.author
	}
	return out, nil
}

// ResolveWindow resolves every event of a window against the window's own
// authorship arena. Output order follows input order.
func (r *Resolver) ResolveWindow(ctx context.Context, events []model.Event) ([]model.ResolvedEvent, error) {
	authors, err := r.Authorships(events)
	if err != nil {
		return nil, err
	}

	out := make([]model.ResolvedEvent, 0, len(events))
	relays := 0
	for _, ev := range events {
		re, err := r.Resolve(ev, authors[ev.SubjectID])
		if err != nil {
			return nil, err
		}
		if re.Identity.Relay {
			relays++
		}
		out = append(out, re)
	}

	if relays > 0 {
		r.log.Debug(ctx, "relay identities left unremapped",
			logger.Int("events", relays))
	}
	return out, nil
}
