package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestFlow_Begin(t *testing.T) {
	provider := &fakeProvider{}
	got := NewFlow(provider).Begin(context.Background(), "xyz")

	if !strings.HasSuffix(got, "state=xyz") {
		t.Errorf("Begin() = %q, want provider URL carrying state", got)
	}
	if provider.exchanges != 0 || provider.refreshes != 0 {
		t.Error("Begin() must not call the token endpoint")
	}
}

func TestFlow_Complete(t *testing.T) {
	goodToken := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}

	tests := []struct {
		name          string
		params        CallbackParams
		token         *oauth2.Token
		exchangeErr   error
		wantErr       bool
		wantExchanges int
	}{
		{
			name:          "success",
			params:        CallbackParams{Code: "code", State: "s", ExpectedState: "s"},
			token:         goodToken,
			wantExchanges: 1,
		},
		{
			name:          "provider error param",
			params:        CallbackParams{Error: "access_denied", State: "s", ExpectedState: "s"},
			wantErr:       true,
			wantExchanges: 0,
		},
		{
			name:          "state mismatch",
			params:        CallbackParams{Code: "code", State: "evil", ExpectedState: "s"},
			token:         goodToken,
			wantErr:       true,
			wantExchanges: 0,
		},
		{
			name:          "no expected state",
			params:        CallbackParams{Code: "code", State: ""},
			token:         goodToken,
			wantErr:       true,
			wantExchanges: 0,
		},
		{
			name:          "missing code",
			params:        CallbackParams{State: "s", ExpectedState: "s"},
			wantErr:       true,
			wantExchanges: 0,
		},
		{
			name:          "invalid or expired code",
			params:        CallbackParams{Code: "stale", State: "s", ExpectedState: "s"},
			exchangeErr:   errors.New("invalid_grant"),
			wantErr:       true,
			wantExchanges: 1,
		},
		{
			name:          "empty token",
			params:        CallbackParams{Code: "code", State: "s", ExpectedState: "s"},
			token:         &oauth2.Token{},
			wantErr:       true,
			wantExchanges: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{exchangeToken: tt.token, exchangeErr: tt.exchangeErr}

			bundle, err := NewFlow(provider).Complete(context.Background(), tt.params)

			if provider.exchanges != tt.wantExchanges {
				t.Errorf("exchanges = %d, want %d", provider.exchanges, tt.wantExchanges)
			}

			if tt.wantErr {
				if !errors.Is(err, ErrCallbackFailed) {
					t.Errorf("Complete() error = %v, want ErrCallbackFailed", err)
				}
				if bundle != nil {
					t.Errorf("Complete() bundle = %+v on failure, want nil", bundle)
				}
				if StateOf(bundle) != Unauthenticated {
					t.Errorf("StateOf() = %v, want unauthenticated", StateOf(bundle))
				}
				return
			}

			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if provider.lastCode != "code" {
				t.Errorf("exchanged code %q, want %q", provider.lastCode, "code")
			}
			if bundle.AccessToken != "access" || bundle.RefreshToken != "refresh" {
				t.Errorf("Complete() bundle = %+v", bundle)
			}
			if StateOf(bundle) != Authenticated {
				t.Errorf("StateOf() = %v, want authenticated", StateOf(bundle))
			}
		})
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Unauthenticated:        "unauthenticated",
		AuthorizationRequested: "authorization_requested",
		CallbackPending:        "callback_pending",
		Authenticated:          "authenticated",
		State(42):              "State(42)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
