// Package mocks provides gomock implementations of the auth ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	peer := mocks.NewMockIdentityPeer(ctrl)
//	peer.EXPECT().LookupID(gomock.Any(), "alice@example.com").Return("42", nil)
package mocks

// Generate mocks for every port in internal/ports:
// CredentialStore, IdentityPeer, PasswordHasher, PrincipalRemover, SessionCache, TokenCodec
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/target/principal-auth/internal/ports CredentialStore,IdentityPeer,PasswordHasher,PrincipalRemover,SessionCache,TokenCodec
