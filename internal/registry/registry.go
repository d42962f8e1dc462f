// Package registry holds the venue, infrastructure and token tables
// that detection consults. A Registry is injected into every analysis
// call; nothing in the detection path reads package-level state.
package registry

import (
	"sort"
	"strings"
	"sync"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

// Registry maps program ids to venue names and classifies infrastructure programs.
// It is safe for concurrent use; AddVenue and AddKnownBot may run while detection reads.
type Registry struct {
	mu             sync.RWMutex
	venues         map[string]string   // programID -> display name
	infrastructure map[string]struct{} // programs that are never swap evidence
	symbols        map[string]string   // mint -> symbol
	stableMints    map[string]struct{}
	knownBots      map[string]struct{}
	prefixes       []prefixRule
}

type prefixRule struct {
	prefix string
	name   string
}

// Option configures a Registry.
type Option func(*Registry)

// WithVenues registers additional venues, overriding defaults on conflict.
func WithVenues(venues map[string]string) Option {
	return func(r *Registry) {
		for id, name := range venues {
			r.venues[id] = name
		}
	}
}

// WithInfrastructure adds program ids to the infrastructure set.
func WithInfrastructure(ids ...string) Option {
	return func(r *Registry) {
		for _, id := range ids {
			r.infrastructure[id] = struct{}{}
		}
	}
}

// WithKnownBots adds wallets to the known-bot set.
func WithKnownBots(wallets ...string) Option {
	return func(r *Registry) {
		for _, w := range wallets {
			r.knownBots[w] = struct{}{}
		}
	}
}

// WithSymbols adds mint display symbols.
func WithSymbols(symbols map[string]string) Option {
	return func(r *Registry) {
		for mint, sym := range symbols {
			r.symbols[mint] = sym
		}
	}
}

// Empty returns a registry with no entries, for tests that build their own tables.
func Empty(opts ...Option) *Registry {
	r := &Registry{
		venues:         make(map[string]string),
		infrastructure: make(map[string]struct{}),
		symbols:        make(map[string]string),
		stableMints:    make(map[string]struct{}),
		knownBots:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// New returns a registry seeded with mainnet defaults, then applies opts.
func New(opts ...Option) *Registry {
	r := Empty()
	for id, name := range DefaultVenues {
		r.venues[id] = name
	}
	for _, id := range DefaultInfrastructure {
		r.infrastructure[id] = struct{}{}
	}
	for mint, sym := range DefaultSymbols {
		r.symbols[mint] = sym
	}
	for _, mint := range StableMints {
		r.stableMints[mint] = struct{}{}
	}
	for _, w := range DefaultKnownBots {
		r.knownBots[w] = struct{}{}
	}
	r.prefixes = append(r.prefixes, defaultPrefixes...)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Venue returns the registered display name for a program.
func (r *Registry) Venue(programID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.venues[programID]
	return name, ok
}

// IsVenue reports whether programID is a registered venue.
func (r *Registry) IsVenue(programID string) bool {
	_, ok := r.Venue(programID)
	return ok
}

// VenueName resolves a program to its display name. Unregistered programs
// surface as the first six characters of their id.
func (r *Registry) VenueName(programID string) string {
	if name, ok := r.Venue(programID); ok {
		return name
	}
	return ShortID(programID)
}

// IsInfrastructure reports whether programID is excluded from swap evidence.
func (r *Registry) IsInfrastructure(programID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.infrastructure[programID]
	return ok
}

// Symbol returns the display symbol of a mint, or its first six characters.
func (r *Registry) Symbol(mint string) string {
	r.mu.RLock()
	sym, ok := r.symbols[mint]
	r.mu.RUnlock()
	if ok {
		return sym
	}
	return ShortID(mint)
}

// IsStable reports whether mint is a USD stable coin.
func (r *Registry) IsStable(mint string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stableMints[mint]
	return ok
}

// IsKnownBot reports whether wallet is a confirmed extractive address.
func (r *Registry) IsKnownBot(wallet string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.knownBots[wallet]
	return ok
}

// AddVenue registers a venue at runtime. Infrastructure programs and
// invalid addresses are rejected.
func (r *Registry) AddVenue(programID, name string) error {
	if err := ValidateAddress(programID); err != nil {
		return err
	}
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.infrastructure[programID]; ok {
		return ErrInfrastructure
	}
	r.venues[programID] = name
	return nil
}

// AddKnownBot marks wallet as a known bot. Bots sign their transactions,
// so program-derived (off-curve) addresses are rejected.
func (r *Registry) AddKnownBot(wallet string) error {
	if err := ValidateAddress(wallet); err != nil {
		return err
	}
	if !IsOnCurve(wallet) {
		return &AddressError{Address: wallet, Err: ErrOffCurve}
	}
	r.mu.Lock()
	r.knownBots[wallet] = struct{}{}
	r.mu.Unlock()
	return nil
}

// Venues returns a copy of the venue table.
func (r *Registry) Venues() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.venues))
	for id, name := range r.venues {
		out[id] = name
	}
	return out
}

// KnownBots returns the known-bot wallets, sorted.
func (r *Registry) KnownBots() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.knownBots))
	for w := range r.knownBots {
		out = append(out, w)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Discover guesses a venue name for an unregistered program from its id prefix.
// It returns false when no prefix matches or the program is infrastructure.
func (r *Registry) Discover(programID string) (string, bool) {
	if r.IsInfrastructure(programID) {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.prefixes {
		if strings.HasPrefix(programID, p.prefix) {
			return p.name, true
		}
	}
	return "", false
}

// ValidateAddress checks that s is a base58 encoded 32-byte public key.
func ValidateAddress(s string) error {
	if _, err := solana.PublicKeyFromBase58(s); err != nil {
		return &AddressError{Address: s, Err: err}
	}
	return nil
}

// IsOnCurve reports whether a base58 address decodes to an ed25519 point.
// Program-derived addresses are off the curve and have no private key.
func IsOnCurve(s string) bool {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}

// ShortID truncates an address to its first six characters.
func ShortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[:6]
}
