package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage/memory"
)

func TestService_Register(t *testing.T) {
	store := memory.NewStore()
	service := NewService(store)

	t.Run("注册成功", func(t *testing.T) {
		user, err := service.Register(RegisterInput{
			Email:     "Alice@Example.com",
			Password:  "password123",
			Username:  "alice",
			FirstName: "Alice",
			LastName:  "Liddell",
		})

		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.NotEmpty(t, user.ID)
		// 邮箱统一小写存储
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, domain.RoleUser, user.Role)
		assert.True(t, user.IsActive)
		// 密码只保存哈希
		assert.NotEqual(t, "password123", user.PasswordHash)
		assert.True(t, CheckPassword("password123", user.PasswordHash))
	})

	t.Run("邮箱格式无效", func(t *testing.T) {
		_, err := service.Register(RegisterInput{
			Email:    "not-an-email",
			Password: "password123",
			Username: "bob",
		})
		assert.Equal(t, ErrInvalidEmail, err)
	})

	t.Run("密码太短", func(t *testing.T) {
		_, err := service.Register(RegisterInput{
			Email:    "bob@example.com",
			Password: "short",
			Username: "bob",
		})
		assert.Error(t, err)
	})

	t.Run("邮箱已被注册", func(t *testing.T) {
		_, err := service.Register(RegisterInput{
			Email:    "alice@example.com",
			Password: "password123",
			Username: "alice2",
		})
		assert.Equal(t, ErrEmailExists, err)
	})

	t.Run("用户名已被注册", func(t *testing.T) {
		_, err := service.Register(RegisterInput{
			Email:    "alice2@example.com",
			Password: "password123",
			Username: "alice",
		})
		assert.Equal(t, ErrUsernameExists, err)
	})
}

func TestService_Login(t *testing.T) {
	store := memory.NewStore()
	service := NewService(store)

	registered, err := service.Register(RegisterInput{
		Email:    "carol@example.com",
		Password: "password123",
		Username: "carol",
	})
	assert.NoError(t, err)

	t.Run("用邮箱登录成功", func(t *testing.T) {
		user, err := service.Login(LoginInput{
			Identifier: "carol@example.com",
			Password:   "password123",
		})
		assert.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
		assert.NotNil(t, user.LastLoginAt)
	})

	t.Run("用用户名登录成功", func(t *testing.T) {
		user, err := service.Login(LoginInput{
			Identifier: "carol",
			Password:   "password123",
		})
		assert.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
	})

	t.Run("密码错误", func(t *testing.T) {
		_, err := service.Login(LoginInput{
			Identifier: "carol@example.com",
			Password:   "wrong-password",
		})
		assert.Equal(t, ErrInvalidCredentials, err)
	})

	t.Run("用户不存在", func(t *testing.T) {
		_, err := service.Login(LoginInput{
			Identifier: "nobody@example.com",
			Password:   "password123",
		})
		assert.Equal(t, ErrInvalidCredentials, err)
	})

	t.Run("停用账号不能登录", func(t *testing.T) {
		registered.IsActive = false
		assert.NoError(t, store.UpdateUser(registered))

		_, err := service.Login(LoginInput{
			Identifier: "carol@example.com",
			Password:   "password123",
		})
		assert.Equal(t, ErrUserInactive, err)

		registered.IsActive = true
		assert.NoError(t, store.UpdateUser(registered))
	})
}

func TestService_UpdateProfile(t *testing.T) {
	store := memory.NewStore()
	service := NewService(store)

	user, err := service.Register(RegisterInput{
		Email:    "dave@example.com",
		Password: "password123",
		Username: "dave",
	})
	assert.NoError(t, err)

	t.Run("部分字段更新", func(t *testing.T) {
		first := "Dave"
		updated, err := service.UpdateProfile(user.ID, UpdateProfileInput{
			FirstName: &first,
		})
		assert.NoError(t, err)
		assert.Equal(t, "Dave", updated.FirstName)
		assert.Equal(t, "", updated.LastName)
	})

	t.Run("用户不存在", func(t *testing.T) {
		first := "Ghost"
		_, err := service.UpdateProfile("nonexistent", UpdateProfileInput{
			FirstName: &first,
		})
		assert.Equal(t, ErrUserNotFound, err)
	})
}

func TestService_ChangePassword(t *testing.T) {
	store := memory.NewStore()
	service := NewService(store)

	user, err := service.Register(RegisterInput{
		Email:    "erin@example.com",
		Password: "oldpassword",
		Username: "erin",
	})
	assert.NoError(t, err)

	t.Run("旧密码错误", func(t *testing.T) {
		err := service.ChangePassword(user.ID, "wrong", "newpassword")
		assert.Error(t, err)
	})

	t.Run("新密码太短", func(t *testing.T) {
		err := service.ChangePassword(user.ID, "oldpassword", "short")
		assert.Error(t, err)
	})

	t.Run("修改成功后用新密码登录", func(t *testing.T) {
		assert.NoError(t, service.ChangePassword(user.ID, "oldpassword", "newpassword"))

		_, err := service.Login(LoginInput{
			Identifier: "erin@example.com",
			Password:   "oldpassword",
		})
		assert.Equal(t, ErrInvalidCredentials, err)

		logged, err := service.Login(LoginInput{
			Identifier: "erin@example.com",
			Password:   "newpassword",
		})
		assert.NoError(t, err)
		assert.Equal(t, user.ID, logged.ID)
	})
}
