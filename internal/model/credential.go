package model

import "errors"

// ErrCorruptCredential reports a user row whose provider and password hash
// disagree.
var ErrCorruptCredential = errors.New("user credential is inconsistent with auth provider")

// Credential is the provider-specific part of an account. Exactly one of
// PasswordCredential or GoogleCredential describes any stored user.
type Credential interface {
	Provider() AuthProvider
}

// PasswordCredential is held by accounts that log in with email and password.
type PasswordCredential struct {
	Hash string
}

func (PasswordCredential) Provider() AuthProvider { return ProviderPassword }

// GoogleCredential is held by accounts that only log in through Google.
type GoogleCredential struct{}

func (GoogleCredential) Provider() AuthProvider { return ProviderGoogle }
