package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	cachemocks "github.com/ojamarket/realtime-api/cache/mocks"
	"github.com/ojamarket/realtime-api/databases/mocks"
	"github.com/ojamarket/realtime-api/models"
)

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func userToken(t *testing.T, secret, userID string) string {
	return mintToken(t, secret, jwt.MapClaims{
		"sub": userID,
		"typ": "access",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	a := &Authenticator{}
	p, err := a.Authenticate(context.Background(), "", false)

	assert.Nil(t, p)
	assert.IsType(t, models.AuthenticationError{}, err)
}

func TestAuthenticateRejectsBadSignature(t *testing.T) {
	t.Setenv("JWT_SECRET", "right-secret")

	a := &Authenticator{}
	token := userToken(t, "wrong-secret", "user-1")
	p, err := a.Authenticate(context.Background(), token, false)

	assert.Nil(t, p)
	assert.IsType(t, models.AuthenticationError{}, err)
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	c := cachemocks.NewService(t)
	c.On("Get", mock.Anything, "auth:token:user:user-1").Return("", redis.Nil)

	a := &Authenticator{Cache: c}
	p, err := a.Authenticate(context.Background(), userToken(t, "secret", "user-1"), false)

	assert.Nil(t, p)
	assert.EqualError(t, err, "token revoked")
}

func TestAuthenticateRejectsSupersededToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	c := cachemocks.NewService(t)
	c.On("Get", mock.Anything, "auth:token:user:user-1").Return("a-newer-token", nil)

	a := &Authenticator{Cache: c}
	p, err := a.Authenticate(context.Background(), userToken(t, "secret", "user-1"), false)

	assert.Nil(t, p)
	assert.EqualError(t, err, "token superseded")
}

func TestAuthenticateFailsClosedOnCacheError(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	c := cachemocks.NewService(t)
	c.On("Get", mock.Anything, "auth:token:user:user-1").Return("", errors.New("redis down"))

	a := &Authenticator{Cache: c}
	p, err := a.Authenticate(context.Background(), userToken(t, "secret", "user-1"), false)

	assert.Nil(t, p)
	assert.EqualError(t, err, "token verification unavailable")
}

func TestAuthenticateRejectsDisabledAccounts(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	token := userToken(t, "secret", "user-1")
	c := cachemocks.NewService(t)
	c.On("Get", mock.Anything, "auth:token:user:user-1").Return(token, nil)

	userDB := mocks.NewUserDatabase(t)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": "user-1"}).Return(&models.User{
		ID:      "user-1",
		Details: models.UserDetails{Name: "Ada", Role: models.RoleCustomer, Blocked: true},
	}, nil)

	a := &Authenticator{Users: userDB, Cache: c}
	p, err := a.Authenticate(context.Background(), token, false)

	assert.Nil(t, p)
	assert.EqualError(t, err, "account disabled")
}

func TestAuthenticateResolvesUserPrincipal(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	token := userToken(t, "secret", "user-1")
	c := cachemocks.NewService(t)
	c.On("Get", mock.Anything, "auth:token:user:user-1").Return(token, nil)

	userDB := mocks.NewUserDatabase(t)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": "user-1"}).Return(&models.User{
		ID:      "user-1",
		Details: models.UserDetails{Name: "Ada Obi", Role: models.RoleAgent},
	}, nil)

	a := &Authenticator{Users: userDB, Cache: c}
	p, err := a.Authenticate(context.Background(), token, false)

	assert.NoError(t, err)
	assert.Equal(t, "user-1", p.ID)
	assert.Equal(t, models.RoleAgent, p.Role)
	assert.Equal(t, "Ada Obi", p.DisplayName)
	assert.False(t, p.IsAdmin())
}

func TestAuthenticateAdminRequiresScopeClaim(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	// a plain user token presented through the admin path
	token := userToken(t, "secret", primitive.NewObjectID().Hex())
	a := &Authenticator{}
	p, err := a.Authenticate(context.Background(), token, true)

	assert.Nil(t, p)
	assert.EqualError(t, err, "not an admin token")
}

func TestAuthenticateResolvesAdminPrincipal(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_JWT_SECRET", "admin-secret")

	adminID := primitive.NewObjectID()
	token := mintToken(t, "admin-secret", jwt.MapClaims{
		"sub":   adminID.Hex(),
		"scope": "admin",
		"typ":   "access",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	c := cachemocks.NewService(t)
	c.On("Get", mock.Anything, "auth:token:admin:"+adminID.Hex()).Return(token, nil)

	adminDB := mocks.NewAdminDatabase(t)
	adminDB.On("FindOne", mock.Anything, bson.M{"_id": adminID, "active": true}).Return(&models.AdminUser{
		ID:     adminID,
		Email:  "ops@ojamarket.app",
		Name:   "Ops",
		Active: true,
	}, nil)

	a := &Authenticator{Admins: adminDB, Cache: c}
	p, err := a.Authenticate(context.Background(), token, true)

	assert.NoError(t, err)
	assert.Equal(t, adminID.Hex(), p.ID)
	assert.Equal(t, models.RoleAdmin, p.Role)
	assert.Equal(t, models.AdminScopeSupport, p.AdminScope)
	assert.True(t, p.IsAdmin())
}
