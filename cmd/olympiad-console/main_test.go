package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohsansi/olympiad-console/config"
)

const evaluadorPerson = `{"id": 9, "nombres": "Luis", "apellidos": "Quispe", "correo": "luis@uni.bo"}`

// newBackend accepts password "pw" and serves the evaluador profile for tok-9.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "pw" {
			reply(w, http.StatusUnprocessableEntity, `{"message": "Credenciales inválidas"}`)
			return
		}
		reply(w, http.StatusOK, `{"token": "tok-9", "user": {"id": 9, "nombres": "Luis", "apellidos": "Quispe",
			"correo": "luis@uni.bo", "roles": [{"id": 3, "slug": "evaluador"}]}}`)
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	authed := func(path string, ok string) {
		mux.HandleFunc("GET "+path, func(w http.ResponseWriter, r *http.Request) {
			if ok == "" || r.Header.Get("Authorization") != "Bearer tok-9" {
				reply(w, http.StatusUnauthorized, `{"message": "Unauthenticated."}`)
				return
			}
			reply(w, http.StatusOK, ok)
		})
	}
	authed("/auth/perfil", "")
	authed("/responsable/perfil", "")
	authed("/evaluador/perfil", `{"data": `+evaluadorPerson+`}`)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testEnv(t *testing.T, baseURL, sessionPath string) env {
	t.Helper()
	return env{
		loadConfig: func() (config.AppConfig, error) {
			cfg := config.AppConfig{
				API:     config.APIConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
				Session: config.SessionConfig{Backend: config.SessionBackendFile, Path: sessionPath},
			}
			cfg.Sanitize()
			return cfg, nil
		},
		stdin:  strings.NewReader(""),
		stdout: io.Discard,
		stderr: io.Discard,
		logs:   io.Discard,
	}
}

func run(t *testing.T, e env, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	e.stdin = strings.NewReader(stdin)
	e.stdout = &out
	cmd := newRootCmd(e)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	backend := newBackend(t)
	e := testEnv(t, backend.URL, filepath.Join(t.TempDir(), "session.json"))

	out, err := run(t, e, "pw\n", "login", "--correo", "luis@uni.bo", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "signed in as EVALUADOR")
	assert.Contains(t, out, "luis@uni.bo")

	out, err = run(t, e, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Luis Quispe")
	assert.Contains(t, out, "EVALUADOR")

	out, err = run(t, e, "", "whoami", "--json")
	require.NoError(t, err)
	var got struct {
		Kind string `json:"kind"`
		User struct {
			ID    string `json:"id"`
			Roles []struct {
				Slug string `json:"slug"`
			} `json:"roles"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "EVALUADOR", got.Kind)
	assert.Equal(t, "9", got.User.ID)
	require.Len(t, got.User.Roles, 1)
	assert.Equal(t, "EVALUADOR", got.User.Roles[0].Slug)

	out, err = run(t, e, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "signed out")

	_, err = run(t, e, "", "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestLogin_RejectedCredentials(t *testing.T) {
	backend := newBackend(t)
	e := testEnv(t, backend.URL, filepath.Join(t.TempDir(), "session.json"))

	_, err := run(t, e, "", "login", "-u", "luis@uni.bo", "-p", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign-in rejected: Credenciales inválidas")

	_, err = run(t, e, "", "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestLogin_MissingCredentialsSkipsBackend(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(srv.Close)
	e := testEnv(t, srv.URL, filepath.Join(t.TempDir(), "session.json"))

	_, err := run(t, e, "", "login", "--correo", "luis@uni.bo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required (see --password)")
	assert.Zero(t, calls)
}

func TestLogin_PasswordFlagsExclusive(t *testing.T) {
	e := testEnv(t, "http://127.0.0.1:1", filepath.Join(t.TempDir(), "session.json"))
	_, err := run(t, e, "pw\n", "login", "-u", "a@b.c", "-p", "x", "--password-stdin")
	require.Error(t, err)
}

func TestReadSecret(t *testing.T) {
	tests := map[string]string{
		"pw\n":   "pw",
		"pw\r\n": "pw",
		"no-eol": "no-eol",
		"":       "",
		"a\nb\n": "a",
	}
	for in, want := range tests {
		got, err := readSecret(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, testEnv(t, "http://127.0.0.1:1", ""), "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}
