package oauth

import (
	"reflect"
	"testing"
)

func TestParseWWWAuthenticate(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    *AuthChallenge
		wantErr bool
	}{
		{
			name:   "simple bearer",
			header: "Bearer",
			want:   &AuthChallenge{Scheme: "Bearer"},
		},
		{
			name:   "bearer with realm and scope",
			header: `Bearer realm="https://auth.example.com", scope="openid print"`,
			want: &AuthChallenge{
				Scheme:              "Bearer",
				Realm:               "https://auth.example.com",
				AuthorizationServer: "https://auth.example.com",
				Scope:               "openid print",
			},
		},
		{
			name:   "basic before bearer",
			header: `Basic realm="CUPS", Bearer realm="https://auth.example.com", scope="print"`,
			want: &AuthChallenge{
				Scheme:              "Bearer",
				Realm:               "https://auth.example.com",
				AuthorizationServer: "https://auth.example.com",
				Scope:               "print",
			},
		},
		{
			name:   "bearer with error",
			header: `Bearer error="invalid_token", error_description="The token has expired"`,
			want: &AuthChallenge{
				Scheme:           "Bearer",
				Error:            "invalid_token",
				ErrorDescription: "The token has expired",
			},
		},
		{
			name:   "unquoted values",
			header: `Bearer realm=printer, error=insufficient_scope`,
			want: &AuthChallenge{
				Scheme: "Bearer",
				Realm:  "printer",
				Error:  "insufficient_scope",
			},
		},
		{
			name:   "http realm is not an authorization server",
			header: `Bearer realm="http://auth.example.com"`,
			want: &AuthChallenge{
				Scheme: "Bearer",
				Realm:  "http://auth.example.com",
			},
		},
		{
			name:   "basic only",
			header: `Basic realm="CUPS"`,
			want:   &AuthChallenge{Scheme: "Basic", Realm: "CUPS"},
		},
		{
			name:    "empty header",
			header:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWWWAuthenticate(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWWWAuthenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseWWWAuthenticate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
