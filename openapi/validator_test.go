package openapi

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := LoadResolver(writeFile(t, "model.yaml", baseModelYAML))
	require.NoError(t, err)
	return NewRegistry(r)
}

func TestRegistry(t *testing.T) {
	t.Run("register and lookup", func(t *testing.T) {
		reg := NewRegistry(nil)
		v := reg.Register("Name", map[string]any{"type": "string"})

		got, ok := reg.Lookup("Name")
		require.True(t, ok)
		assert.Same(t, v, got)
		assert.Equal(t, "Name", got.Name())

		_, ok = reg.Lookup("Missing")
		assert.False(t, ok)
	})

	t.Run("register replaces", func(t *testing.T) {
		reg := NewRegistry(nil)
		reg.Register("A", map[string]any{"type": "string"})
		reg.Register("A", map[string]any{"type": "integer"})

		v, _ := reg.Lookup("A")
		assert.Equal(t, map[string]any{"type": "integer"}, v.Schema())
	})

	t.Run("schema is a copy", func(t *testing.T) {
		schema := map[string]any{"type": "string"}
		v := NewRegistry(nil).Register("A", schema)
		schema["type"] = "integer"

		s := v.Schema()
		s["format"] = "x"
		assert.Equal(t, map[string]any{"type": "string"}, v.Schema())
	})

	t.Run("register ref", func(t *testing.T) {
		reg := newTestRegistry(t)
		v, err := reg.RegisterRef("User", "schemas")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"$ref": "#/components/schemas/User"}, v.Schema())
	})

	t.Run("register ref invalid category", func(t *testing.T) {
		_, err := NewRegistry(nil).RegisterRef("User", "models")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidComponentCategory))
	})

	t.Run("names sorted", func(t *testing.T) {
		reg := NewRegistry(nil)
		reg.Register("b", nil)
		reg.Register("a", nil)
		assert.Equal(t, []string{"a", "b"}, reg.Names())
	})

	t.Run("concurrent register", func(t *testing.T) {
		reg := NewRegistry(nil)
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				reg.Register(string(rune('a'+i)), map[string]any{"type": "string"})
				reg.Lookup("a")
			}(i)
		}
		wg.Wait()
		assert.Len(t, reg.Names(), 20)
	})
}

func TestValidatorValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		reg := newTestRegistry(t)
		v, err := reg.RegisterRef("User", "schemas")
		require.NoError(t, err)

		assert.NoError(t, v.Validate(map[string]any{"name": "alice"}))
	})

	t.Run("missing required property", func(t *testing.T) {
		reg := newTestRegistry(t)
		v, err := reg.RegisterRef("User", "schemas")
		require.NoError(t, err)

		err = v.Validate(map[string]any{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidationFailed))

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "User", verr.Validator)
		assert.Contains(t, verr.Message, "name")
		assert.Equal(t, map[string]any{}, verr.Value)
		assert.Equal(t, "object", verr.Schema["type"])
	})

	t.Run("nested type error", func(t *testing.T) {
		reg := newTestRegistry(t)
		v, err := reg.RegisterRef("User", "schemas")
		require.NoError(t, err)

		err = v.Validate(map[string]any{"name": 5})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "name", verr.Field)
		assert.Equal(t, map[string]any{"type": "string"}, verr.Schema)
	})

	t.Run("recursive reference", func(t *testing.T) {
		reg := newTestRegistry(t)
		v, err := reg.RegisterRef("User", "schemas")
		require.NoError(t, err)

		err = v.Validate(map[string]any{
			"name":    "alice",
			"friends": []any{map[string]any{"name": "bob"}, map[string]any{}},
		})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "object", verr.Schema["type"])
	})

	t.Run("raw schema without base model", func(t *testing.T) {
		v := NewRegistry(nil).Register("Count", map[string]any{"type": "integer", "minimum": 1})

		assert.NoError(t, v.Validate(float64(3)))

		err := v.Validate(float64(0))
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, map[string]any{"type": "integer", "minimum": 1}, verr.Schema)
	})

	t.Run("forward reference resolves on first use", func(t *testing.T) {
		reg := NewRegistry(NewResolver(map[string]any{
			"components": map[string]any{
				"schemas": map[string]any{
					"Owner": map[string]any{"$ref": "#/components/schemas/Person"},
					"Person": map[string]any{
						"type":     "object",
						"required": []any{"id"},
					},
				},
			},
		}))
		v, err := reg.RegisterRef("Owner", "schemas")
		require.NoError(t, err)

		assert.NoError(t, v.Validate(map[string]any{"id": float64(1)}))
		assert.Error(t, v.Validate(map[string]any{}))
	})

	t.Run("dangling reference fails to compile", func(t *testing.T) {
		v, err := NewRegistry(nil).RegisterRef("Ghost", "schemas")
		require.NoError(t, err)

		err = v.Validate(map[string]any{})
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrValidationFailed))
	})

	t.Run("concurrent validation", func(t *testing.T) {
		reg := newTestRegistry(t)
		v, err := reg.RegisterRef("User", "schemas")
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, v.Validate(map[string]any{"name": "x"}))
				assert.Error(t, v.Validate(map[string]any{}))
			}()
		}
		wg.Wait()
	})
}
