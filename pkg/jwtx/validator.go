package jwtx

import "time"

// Validator decodes a token and runs it through the claim model. It does
// not know about revocation; callers layer that on top.
type Validator struct {
	alg Algorithm
	key any
	now func() time.Time
}

// NewValidator prepares a validator for tokens signed with alg. key may be
// the signing key; its public half is derived.
func NewValidator(alg Algorithm, key any, now func() time.Time) (*Validator, error) {
	vk, err := VerificationKey(alg, key)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{alg: alg, key: vk, now: now}, nil
}

// Validate verifies the signature of raw and checks its claims against the
// current time. Decode failures wrap ErrCorrupted or ErrBadSignature; claim
// failures are *ValidationError values.
func (v *Validator) Validate(raw string) (*Token, error) {
	d, err := Decode(raw, v.key, v.alg)
	if err != nil {
		return nil, err
	}
	return NewToken(d.Header, d.Payload, v.now())
}
