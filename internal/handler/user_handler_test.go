package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"account_service/internal/middleware"
	"account_service/internal/model"
	"account_service/internal/repository"
	"account_service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var me = &model.User{ID: 1, Username: "user1", Phone: 79000000001, IsActive: true}

func userRouter(svc *mockUserService, user *model.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	setUser := func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.AuthUserKey, user)
		}
		c.Next()
	}
	NewUserHandler(svc, zap.NewNop()).RegisterUserRoutes(&r.RouterGroup, setUser)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUserHandler_GetMe(t *testing.T) {
	svc := new(mockUserService)
	svc.On("GetSelf", mock.Anything, me).
		Return(&model.ResponseUser{Username: "user1", Phone: 79000000001, IsActive: true, Avatar: "iVBORw0KGgo="}, nil)

	w := doJSON(userRouter(svc, me), http.MethodGet, "/users/me", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"user1","phone":79000000001,"is_active":true,"avatar":"iVBORw0KGgo="}`, w.Body.String())
}

func TestUserHandler_GetMe_NoUser(t *testing.T) {
	svc := new(mockUserService)

	w := doJSON(userRouter(svc, nil), http.MethodGet, "/users/me", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestUserHandler_UpdateMe(t *testing.T) {
	svc := new(mockUserService)
	username := "update"
	svc.On("UpdateSelf", mock.Anything, me, model.UpdateUserRequest{Username: &username}).
		Return(&model.ResponseUser{Username: "update", Phone: 79000000001, IsActive: true}, nil)

	w := doJSON(userRouter(svc, me), http.MethodPatch, "/users/me", `{"username":"update"}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"username":"update","phone":79000000001,"is_active":true}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestUserHandler_UpdateMe_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"no data", service.ErrNoUpdateData, http.StatusBadRequest, `{"error":"no update data"}`},
		{"conflict", &repository.ConflictError{Field: "username"}, http.StatusBadRequest, `{"error":"username already exists","field":"username"}`},
		{"bad avatar", service.ErrAvatarDecode, http.StatusBadRequest, `{"error":"could not decode avatar"}`},
		{"gone", service.ErrUnauthenticated, http.StatusUnauthorized, `{"error":"could not validate credentials"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockUserService)
			svc.On("UpdateSelf", mock.Anything, me, mock.Anything).Return(nil, tt.err)

			w := doJSON(userRouter(svc, me), http.MethodPatch, "/users/me", `{}`)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestUserHandler_UpdateMe_MalformedBody(t *testing.T) {
	svc := new(mockUserService)

	w := doJSON(userRouter(svc, me), http.MethodPatch, "/users/me", `{"phone": "not-a-number"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	svc.AssertNotCalled(t, "UpdateSelf", mock.Anything, mock.Anything, mock.Anything)
}
