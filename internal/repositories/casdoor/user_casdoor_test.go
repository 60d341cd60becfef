package casdoor

import (
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/course-service/internal/models"
)

func TestMapRoleName(t *testing.T) {
	cases := map[string]models.UserRole{
		"Teacher":    models.RoleTeacher,
		"instructor": models.RoleTeacher,
		"admin":      models.RoleAdmin,
		"Operator":   models.RoleAdmin,
		"student":    models.RoleStudent,
		"unknown":    models.RoleStudent,
	}
	for name, want := range cases {
		assert.Equal(t, want, MapRoleName(name), name)
	}
}

func TestToModel(t *testing.T) {
	t.Run("admin flag wins", func(t *testing.T) {
		user := ToUserModel(&casdoorsdk.User{
			Id:      "u1",
			IsAdmin: true,
			Roles:   []*casdoorsdk.Role{{Name: "student"}},
		})
		assert.Equal(t, models.RoleAdmin, user.Role)
	})

	t.Run("teacher outranks student", func(t *testing.T) {
		user := ToUserModel(&casdoorsdk.User{
			Id:          "u2",
			DisplayName: "Ada",
			Email:       "ada@example.com",
			Roles:       []*casdoorsdk.Role{{Name: "student"}, {Name: "teacher"}},
			CreatedTime: "2025-01-02T03:04:05Z",
		})
		assert.Equal(t, models.RoleTeacher, user.Role)
		assert.Equal(t, "Ada", user.FullName)
		assert.Equal(t, 2025, user.CreatedAt.Year())
		assert.Nil(t, user.AvatarURL)
	})

	t.Run("no roles defaults to student", func(t *testing.T) {
		assert.Equal(t, models.RoleStudent, ToUserModel(&casdoorsdk.User{Id: "u3"}).Role)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ToUserModel(nil))
	})
}
