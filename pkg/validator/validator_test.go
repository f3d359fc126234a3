package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniserve/uniserve/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("no rules", func(t *testing.T) {
		assert.NoError(t, validator.Apply())
	})

	t.Run("collects errors from every rule", func(t *testing.T) {
		err := validator.Apply(
			validator.ValidEmail("email", "nope"),
			validator.StrongPassword("password", "x", validator.PasswordStrengthConfig{MinLength: 8}),
		)
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Len(t, verrs, 2)
		assert.True(t, verrs.Has("email"))
		assert.True(t, verrs.Has("password"))
	})
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	valid := []string{
		"student@university.edu",
		"first.last@sub.university.edu",
		"tag+filter@university.edu",
	}
	for _, email := range valid {
		assert.NoError(t, validator.Apply(validator.ValidEmail("email", email)), email)
	}

	invalid := []string{
		"",
		"plain",
		"@university.edu",
		"a b@university.edu",
		"Student Name <student@university.edu>",
	}
	for _, email := range invalid {
		assert.Error(t, validator.Apply(validator.ValidEmail("email", email)), email)
	}
}

func TestStrongPassword(t *testing.T) {
	t.Parallel()
	cfg := validator.PasswordStrengthConfig{MinLength: 8, MaxLength: 64, MinCharClasses: 2}

	t.Run("accepts mixed class passwords", func(t *testing.T) {
		assert.NoError(t, validator.Apply(validator.StrongPassword("password", "correct-horse7", cfg)))
	})

	t.Run("too short", func(t *testing.T) {
		assert.Error(t, validator.Apply(validator.StrongPassword("password", "aB3!", cfg)))
	})

	t.Run("too long", func(t *testing.T) {
		long := make([]byte, 65)
		for i := range long {
			long[i] = 'a'
		}
		assert.Error(t, validator.Apply(validator.StrongPassword("password", string(long)+"B1", cfg)))
	})

	t.Run("single character class", func(t *testing.T) {
		assert.Error(t, validator.Apply(validator.StrongPassword("password", "aaaaaaaaaa", cfg)))
	})
}

func TestNotCommonPassword(t *testing.T) {
	t.Parallel()

	for _, pw := range []string{"password123", "Password123", "student", "campus123"} {
		assert.Error(t, validator.Apply(validator.NotCommonPassword("password", pw)), pw)
	}
	assert.NoError(t, validator.Apply(validator.NotCommonPassword("password", "genuinely-novel-9")))
}
