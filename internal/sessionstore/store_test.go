package sessionstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	mockauth "github.com/ohsansi/olympiad-console/internal/mocks/auth"
	"github.com/ohsansi/olympiad-console/internal/ports"
)

// plainKV hides MemoryKV's batch support to exercise the key-by-key path.
type plainKV struct{ ports.KeyValueStore }

func newStore(t *testing.T, kv ports.KeyValueStore) (*Store, *[]string) {
	t.Helper()
	var tokens []string
	s, err := New(Options{KV: kv, OnToken: func(tok string) { tokens = append(tokens, tok) }})
	require.NoError(t, err)
	return s, &tokens
}

func sampleProfile() *domainauth.Profile {
	return &domainauth.Profile{
		ID:      "5",
		Nombres: "Ana",
		Correo:  "ana@uni.bo",
		Roles:   []domainauth.Role{{ID: "1", Slug: "ADMIN", Nombre: "Administrador"}},
	}
}

func TestNew_RequiresKV(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestStore_TokenRoundTripNotifiesObserver(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	s, tokens := newStore(t, kv)
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "abc"))
	got, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	require.NoError(t, s.SetToken(ctx, ""))
	_, ok := kv.Raw(KeyToken)
	assert.False(t, ok)
	assert.Equal(t, []string{"abc", ""}, *tokens)
}

func TestStore_KindIgnoresGarbage(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	s, _ := newStore(t, kv)
	ctx := context.Background()

	kv.Put(KeyKind, "SUPERUSER")
	kind, err := s.Kind(ctx)
	require.NoError(t, err)
	assert.Empty(t, kind)

	require.NoError(t, s.SetKind(ctx, domainauth.KindEvaluador))
	kind, err = s.Kind(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.KindEvaluador, kind)
}

func TestStore_CorruptProfileIsDiscarded(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	s, _ := newStore(t, kv)

	kv.Put(KeyProfile, "{not json")
	p, err := s.Profile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
	_, ok := kv.Raw(KeyProfile)
	assert.False(t, ok, "corrupt profile should be deleted")
}

func TestStore_EmptyProfileIsDiscarded(t *testing.T) {
	for _, raw := range []string{"null", "{}", `{"id":"  ","nombres":"Ana"}`} {
		t.Run(raw, func(t *testing.T) {
			kv := mockauth.NewMemoryKV()
			s, _ := newStore(t, kv)

			kv.Put(KeyProfile, raw)
			p, err := s.Profile(context.Background())
			require.NoError(t, err)
			assert.Nil(t, p)
			_, ok := kv.Raw(KeyProfile)
			assert.False(t, ok)
		})
	}
}

func TestStore_LoadDiscardsProfileOfAnotherKind(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	s, _ := newStore(t, kv)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, ports.Persisted{Token: "tok", Kind: domainauth.KindEvaluador, Profile: sampleProfile()}))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", out.Token)
	assert.Equal(t, domainauth.KindEvaluador, out.Kind)
	assert.Nil(t, out.Profile)
	_, ok := kv.Raw(KeyProfile)
	assert.False(t, ok)

	evaluador, err := domainauth.Synthesize(domainauth.KindEvaluador, domainauth.Person{ID: "9", Nombres: "Luis"})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, ports.Persisted{Token: "tok", Kind: domainauth.KindEvaluador, Profile: &evaluador}))
	out, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, out.Profile)
	assert.Equal(t, "9", out.Profile.ID)
}

func TestStore_SaveLoadClear(t *testing.T) {
	for name, kv := range map[string]func() (ports.KeyValueStore, *mockauth.MemoryKV){
		"batch": func() (ports.KeyValueStore, *mockauth.MemoryKV) {
			m := mockauth.NewMemoryKV()
			return m, m
		},
		"plain": func() (ports.KeyValueStore, *mockauth.MemoryKV) {
			m := mockauth.NewMemoryKV()
			return plainKV{m}, m
		},
	} {
		t.Run(name, func(t *testing.T) {
			backend, raw := kv()
			s, tokens := newStore(t, backend)
			ctx := context.Background()

			in := ports.Persisted{Token: "tok", Kind: domainauth.KindAdmin, Profile: sampleProfile()}
			require.NoError(t, s.Save(ctx, in))
			assert.Equal(t, []string{KeyKind, KeyProfile, KeyToken}, raw.Keys())

			out, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, in, out)
			assert.True(t, out.Complete())

			require.NoError(t, s.Clear(ctx))
			assert.Empty(t, raw.Keys())
			assert.Equal(t, []string{"tok", "tok", ""}, *tokens)

			out, err = s.Load(ctx)
			require.NoError(t, err)
			assert.False(t, out.Complete())
			assert.Nil(t, out.Profile)
		})
	}
}

func TestStore_SaveWithEmptyFieldsRemovesKeys(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	s, _ := newStore(t, kv)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, ports.Persisted{Token: "tok", Kind: domainauth.KindAdmin, Profile: sampleProfile()}))
	require.NoError(t, s.Save(ctx, ports.Persisted{Token: "tok2", Kind: domainauth.KindResponsable}))

	assert.Equal(t, []string{KeyKind, KeyToken}, kv.Keys())
}

func TestStore_SaveFailureDoesNotNotify(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	s, tokens := newStore(t, kv)
	kv.FailWrites(mockauth.ErrInjected)

	err := s.Save(context.Background(), ports.Persisted{Token: "tok", Kind: domainauth.KindAdmin})
	require.ErrorIs(t, err, mockauth.ErrInjected)
	assert.Empty(t, *tokens)
}

func TestStore_LoadPropagatesBackendErrors(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	s, _ := newStore(t, kv)
	kv.FailGets(mockauth.ErrInjected)

	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, mockauth.ErrInjected)
}
