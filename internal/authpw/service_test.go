package authpw

import (
	"context"
	"errors"
	"testing"

	"shelfmark/api/internal/store"
)

// mockUserStore is a mock implementation of UserStore for testing
type mockUserStore struct {
	users      map[string]store.User
	emailIndex map[string]string // email -> userID
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:      make(map[string]store.User),
		emailIndex: make(map[string]string),
	}
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if user, ok := m.users[userID]; ok {
		return user, nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) CreateUser(ctx context.Context, user store.User) error {
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return nil
}

func TestSignUpThenSignIn(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	created, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "reader@example.com",
		Password:    "correct horse",
		DisplayName: "Reader",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a user ID")
	}
	if created.PasswordHash == "correct horse" {
		t.Fatal("password stored in the clear")
	}

	user, err := svc.SignIn(ctx, SignInRequest{Email: "reader@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("signed in as %s, want %s", user.ID, created.ID)
	}
}

func TestSignUpNormalizesEmail(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "  Reader@Example.COM ",
		Password:    "correct horse",
		DisplayName: "Reader",
	}); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if _, err := svc.SignIn(ctx, SignInRequest{Email: "reader@example.com", Password: "correct horse"}); err != nil {
		t.Fatalf("sign in with normalized email: %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	cases := []struct {
		name string
		req  SignUpRequest
	}{
		{"missing email", SignUpRequest{Password: "longenough", DisplayName: "X"}},
		{"missing password", SignUpRequest{Email: "a@b.com", DisplayName: "X"}},
		{"missing display name", SignUpRequest{Email: "a@b.com", Password: "longenough"}},
		{"short password", SignUpRequest{Email: "a@b.com", Password: "short", DisplayName: "X"}},
		{"not an email", SignUpRequest{Email: "nope", Password: "longenough", DisplayName: "X"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SignUp(ctx, tc.req); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	req := SignUpRequest{Email: "reader@example.com", Password: "correct horse", DisplayName: "Reader"}
	if _, err := svc.SignUp(ctx, req); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	if _, err := svc.SignUp(ctx, req); err == nil {
		t.Fatal("expected duplicate email to be rejected")
	}
}

func TestSignInWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "reader@example.com", Password: "correct horse", DisplayName: "Reader"}); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	_, wrongPw := svc.SignIn(ctx, SignInRequest{Email: "reader@example.com", Password: "wrong"})
	_, unknown := svc.SignIn(ctx, SignInRequest{Email: "nobody@example.com", Password: "wrong"})
	if wrongPw == nil || unknown == nil {
		t.Fatal("expected both sign-ins to fail")
	}
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("error messages differ: %q vs %q", wrongPw.Error(), unknown.Error())
	}
}
