// Package profile provides the virtual profile pool used for presence
// padding and bot escalation.
package profile

import (
	"encoding/json"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Profile is a synthetic identity template. The cooldown field is the only
// runtime-mutated state; everything else is read-only after load.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Gender      string `json:"gender"`
	Persona     string `json:"persona"`
	City        string `json:"city"`
	Profession  string `json:"profession"`
	Hobby       string `json:"hobby"`
	Language    string `json:"language"`

	cooldownUntil time.Time
}

// InCooldown reports whether the profile is unavailable at the given time.
func (p *Profile) InCooldown(now time.Time) bool {
	return now.Before(p.cooldownUntil)
}

// SetCooldown marks the profile unavailable until the given time.
func (p *Profile) SetCooldown(until time.Time) {
	p.cooldownUntil = until
}

// Pool holds the virtual profiles with thread-safe access.
type Pool struct {
	mu       sync.Mutex
	profiles []*Profile
	rng      *rand.Rand
}

// NewPool creates a pool over the given profiles. The random source is
// injected so tests can seed it.
func NewPool(profiles []*Profile, rng *rand.Rand) *Pool {
	return &Pool{
		profiles: profiles,
		rng:      rng,
	}
}

// LoadFile loads profiles from a JSON file.
func LoadFile(path string) ([]*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read profile file")
	}

	var profiles []*Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, errors.Wrap(err, "failed to parse profile file")
	}

	for i, p := range profiles {
		if p.ID == "" {
			return nil, errors.Newf("profile at index %d has no id", i)
		}
	}

	zlog.Info().Msgf("loaded virtual profiles: count=%d path=%s", len(profiles), path)
	return profiles, nil
}

// Size returns the total number of profiles.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.profiles)
}

// Available returns the number of profiles not in cooldown.
func (p *Pool) Available(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, pr := range p.profiles {
		if !pr.InCooldown(now) {
			n++
		}
	}
	return n
}

// Take returns up to count profiles not in cooldown, in random order, and
// marks each of them in cooldown until now+cooldown. Used for presence
// padding.
func (p *Pool) Take(count int, now time.Time, cooldown time.Duration) []*Profile {
	if count <= 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	shuffled := make([]*Profile, len(p.profiles))
	copy(shuffled, p.profiles)
	p.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var taken []*Profile
	for _, pr := range shuffled {
		if len(taken) >= count {
			break
		}
		if pr.InCooldown(now) {
			continue
		}
		pr.SetCooldown(now.Add(cooldown))
		taken = append(taken, pr)
	}
	return taken
}

// Pick returns one profile not in cooldown whose ID differs from excludeID,
// and marks it in cooldown until now+cooldown. If only the excluded profile
// is available it is returned anyway (a repeat bot beats no bot). Returns
// nil when nothing is available.
func (p *Pool) Pick(now time.Time, cooldown time.Duration, excludeID string) *Profile {
	p.mu.Lock()
	defer p.mu.Unlock()

	var excluded *Profile
	for _, pr := range p.profiles {
		if pr.InCooldown(now) {
			continue
		}
		if pr.ID == excludeID {
			excluded = pr
			continue
		}
		pr.SetCooldown(now.Add(cooldown))
		return pr
	}

	if excluded != nil {
		excluded.SetCooldown(now.Add(cooldown))
		return excluded
	}
	return nil
}

// Get returns the profile with the given ID.
func (p *Pool) Get(id string) (*Profile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pr := range p.profiles {
		if pr.ID == id {
			return pr, true
		}
	}
	return nil, false
}
