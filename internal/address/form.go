// Package address implements the new-address form with pincode auto-fill.
//
// A complete 6-digit pincode triggers a lookup. A successful lookup fills city,
// state and state code and locks them. Any edit to the pincode unlocks them
// straight away, and a lookup answer for a pincode that is no longer current is
// dropped.
package address

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
)

var (
	ErrFieldLocked = errors.New("field is filled from the pincode and cannot be edited")
	ErrInvalid     = errors.New("address is incomplete")
)

var (
	pincodeRe = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	phoneRe   = regexp.MustCompile(`^[0-9+\- ]{10,15}$`)
)

// API is what the form needs from the backend.
type API interface {
	PincodeDetails(ctx context.Context, pincode string) (*domain.PincodeDetails, error)
	CreateAddress(ctx context.Context, a domain.Address) (*domain.Address, error)
}

type Form struct {
	api API
	log *slog.Logger

	mu      sync.Mutex
	addr    domain.Address
	locked  bool
	seq     uint64
	lookErr string
}

func NewForm(api API, log *slog.Logger) *Form {
	return &Form{api: api, log: log}
}

// SetPincode records the pincode. It returns true when the value is a
// complete pincode and LookupPincode should follow.
func (f *Form) SetPincode(pin string) bool {
	pin = strings.TrimSpace(pin)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addr.Pincode = pin
	f.locked = false
	f.lookErr = ""
	f.seq++
	return pincodeRe.MatchString(pin)
}

// LookupPincode resolves the current pincode and auto-fills on success. A
// result that arrives after the pincode changed again is discarded.
func (f *Form) LookupPincode(ctx context.Context) error {
	f.mu.Lock()
	pin, seq := f.addr.Pincode, f.seq
	f.mu.Unlock()
	if !pincodeRe.MatchString(pin) {
		return nil
	}

	details, err := f.api.PincodeDetails(ctx, pin)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.seq {
		f.log.DebugContext(ctx, "stale pincode lookup dropped", "pincode", pin)
		return nil
	}
	if err != nil {
		f.lookErr = "Could not find this pincode. Please enter city and state manually."
		return err
	}
	f.addr.City = details.City
	f.addr.State = details.State
	f.addr.StateCode = details.StateCode
	f.locked = true
	return nil
}

// EnterPincode sets the pincode and runs the lookup when it is complete.
func (f *Form) EnterPincode(ctx context.Context, pin string) error {
	if !f.SetPincode(pin) {
		return nil
	}
	return f.LookupPincode(ctx)
}

func (f *Form) SetCity(city string) error {
	return f.setLocked(func(a *domain.Address) { a.City = city })
}

func (f *Form) SetState(state, stateCode string) error {
	return f.setLocked(func(a *domain.Address) {
		a.State = state
		a.StateCode = stateCode
	})
}

func (f *Form) setLocked(apply func(*domain.Address)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return ErrFieldLocked
	}
	apply(&f.addr)
	return nil
}

// Fields is the set of freely editable fields.
type Fields struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	IsDefault    bool   `json:"is_default"`
}

func (f *Form) SetFields(v Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addr.FullName = strings.TrimSpace(v.FullName)
	f.addr.Phone = strings.TrimSpace(v.Phone)
	f.addr.AddressLine1 = strings.TrimSpace(v.AddressLine1)
	f.addr.AddressLine2 = strings.TrimSpace(v.AddressLine2)
	f.addr.IsDefault = v.IsDefault
}

// Locked reports whether city and state are read-only.
func (f *Form) Locked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}

// Validate returns field -> message for every invalid field.
func (f *Form) Validate() map[string]string {
	f.mu.Lock()
	a := f.addr
	f.mu.Unlock()

	errs := make(map[string]string)
	if a.FullName == "" {
		errs["full_name"] = "Full name is required"
	}
	if !phoneRe.MatchString(a.Phone) {
		errs["phone"] = "Enter a valid phone number"
	}
	if a.AddressLine1 == "" {
		errs["address_line1"] = "Address is required"
	}
	if !pincodeRe.MatchString(a.Pincode) {
		errs["pincode"] = "Enter a valid 6-digit pincode"
	}
	if a.City == "" {
		errs["city"] = "City is required"
	}
	if a.State == "" {
		errs["state"] = "State is required"
	}
	return errs
}

// Submit validates and creates the address.
func (f *Form) Submit(ctx context.Context) (*domain.Address, map[string]string, error) {
	if errs := f.Validate(); len(errs) > 0 {
		return nil, errs, ErrInvalid
	}
	f.mu.Lock()
	a := f.addr
	f.mu.Unlock()

	created, err := f.api.CreateAddress(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	return created, nil, nil
}

// State is the render view of the form.
type State struct {
	Address     domain.Address `json:"address"`
	Locked      bool           `json:"locked"`
	LookupError string         `json:"lookup_error,omitempty"`
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{Address: f.addr, Locked: f.locked, LookupError: f.lookErr}
}
