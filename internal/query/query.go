// Package query decides whether a request is served from the
// authenticated private timeline or from the public per-day aggregate
// profile, and fetches the base payload for the winning mode
package query

import (
	"context"
	"time"

	"trcli/internal/adapters/trainerroad"
	"trcli/internal/core/record"
	perr "trcli/internal/platform/errors"
)

// Mode is the resolved data source
type Mode string

const (
	// ModePrivate serves from the authenticated member's timeline
	ModePrivate Mode = "private"
	// ModePublic serves from a username's public profile aggregates
	ModePublic Mode = "public"
)

// Intent is what the caller asked for: an optional explicit target
// username and whether public mode is forced
type Intent struct {
	Target      string
	ForcePublic bool
}

// Member wraps the authenticated member-info document
type Member struct {
	Raw record.Raw
}

// Username returns the member's login name
func (m *Member) Username() string { return m.Raw.String("username") }

// ID returns the numeric member id the detail endpoints key on
func (m *Member) ID() int64 { return m.Raw.Int("memberId") }

// Context is a resolved query context. Private mode carries the member
// identity and the full timeline; public mode carries only the target
// username and the flattened day aggregates, never the identity
type Context struct {
	Mode           Mode
	Client         *trainerroad.Client
	Member         *Member
	TargetUsername string
	Timeline       *record.Timeline
	PublicTSS      record.Raw
	PublicDays     []record.DayAggregate
}

// Resolve picks the mode. Private wins when an identity is available,
// public is not forced, and any explicit target is the identity itself;
// everything else falls back to the public profile of the target (or of
// the identity when no target was given). The guards run in order so
// the precedence is auditable
func Resolve(ctx context.Context, client *trainerroad.Client, intent Intent, loc *time.Location) (*Context, error) {
	var identity *Member
	if info, err := client.MemberInfo(ctx); err == nil && info != nil {
		// a failed identity probe just means public fallback
		identity = &Member{Raw: info}
	}

	if identity != nil && !intent.ForcePublic &&
		(intent.Target == "" || intent.Target == identity.Username()) {
		timeline, err := client.Timeline(ctx, identity.ID(), identity.Username())
		if err != nil {
			return nil, err
		}
		return &Context{
			Mode:           ModePrivate,
			Client:         client,
			Member:         identity,
			TargetUsername: identity.Username(),
			Timeline:       record.TimelineFromRaw(timeline),
		}, nil
	}

	target := intent.Target
	if target == "" && identity != nil {
		target = identity.Username()
	}
	if target == "" {
		return nil, perr.NoTargetf(
			"no target profile available; use --target <username> for public mode, or login for private mode")
	}

	publicTSS, err := client.PublicTSS(ctx, target)
	if err != nil {
		// the upstream reason stays on the chain but not in the message;
		// a missing and a private profile must read the same
		return nil, perr.Wrapf(err, perr.ErrorCodePublicProfile,
			"public profile data is unavailable for %q; the profile may be private, or the username may not exist", target)
	}

	return &Context{
		Mode:           ModePublic,
		Client:         client,
		TargetUsername: target,
		PublicTSS:      publicTSS,
		PublicDays:     record.FlattenPublicDays(publicTSS, loc),
	}, nil
}

// RequirePrivate guards operations that only exist on the private
// timeline
func RequirePrivate(qc *Context, op string) error {
	if qc == nil || qc.Mode != ModePrivate {
		return perr.PrivateModef(
			"%s requires private authenticated mode; login first and run without --public/--target", op)
	}
	return nil
}
