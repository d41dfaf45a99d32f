package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnresolvedCollision is returned when every derived candidate is taken.
var ErrUnresolvedCollision = errors.New("no collision-free value could be derived")

// ExistsFunc reports whether a value is already taken in the target.
type ExistsFunc func(ctx context.Context, value string) (bool, error)

// stamp is the timestamp suffix used when the old-id variant also collides.
func stamp(now time.Time) string {
	return now.Format("01021504")
}

// EmailCandidates lists, in order, the addresses tried for a record: the
// address itself, local+{tag}{oldID}@domain, then the same with a timestamp.
// The list depends only on its inputs.
func EmailCandidates(email, tag, oldID string, now time.Time) []string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return []string{email}
	}
	suffix := tag + oldID
	return []string{
		email,
		local + "+" + suffix + "@" + domain,
		local + "+" + suffix + stamp(now) + "@" + domain,
	}
}

// CodeCandidates lists the government codes tried for a school: the code,
// {code}_{oldID}, then {code}_{oldID}_{timestamp}.
func CodeCandidates(code, oldID string, now time.Time) []string {
	return []string{
		code,
		code + "_" + oldID,
		code + "_" + oldID + "_" + stamp(now),
	}
}

// FirstFree returns the first candidate that exists reports as free, and
// whether it differs from the first candidate.
func FirstFree(ctx context.Context, exists ExistsFunc, candidates []string) (string, bool, error) {
	for i, c := range candidates {
		taken, err := exists(ctx, c)
		if err != nil {
			return "", false, fmt.Errorf("check %q: %w", c, err)
		}
		if !taken {
			return c, i > 0, nil
		}
	}
	return "", false, fmt.Errorf("%w: tried %s", ErrUnresolvedCollision, strings.Join(candidates, ", "))
}
