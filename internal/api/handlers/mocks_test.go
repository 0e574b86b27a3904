package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/robcowart/udnm/internal/database/models"
	"github.com/robcowart/udnm/internal/service"
	"github.com/robcowart/udnm/internal/udn"
	"github.com/stretchr/testify/mock"
)

// MockUserService is a mock implementation of the user service for testing
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) IsSetupComplete() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) PerformInitialSetup(req *service.SetupRequest) (*service.SetupResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SetupResponse), args.Error(1)
}

func (m *MockUserService) AuthenticateUser(username, password string) (string, error) {
	args := m.Called(username, password)
	return args.String(0), args.Error(1)
}

// MockUDNService is a mock implementation of UDNService for testing
type MockUDNService struct {
	mock.Mock
}

func (m *MockUDNService) Assign(ctx context.Context, req *udn.AssignRequest) (*models.Assignment, bool, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Assignment), args.Bool(1), args.Error(2)
}

func (m *MockUDNService) Revoke(ctx context.Context, mac string) (bool, error) {
	args := m.Called(ctx, mac)
	return args.Bool(0), args.Error(1)
}

func (m *MockUDNService) RevokeUser(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUDNService) MarkAuthenticated(ctx context.Context, mac string) (bool, error) {
	args := m.Called(ctx, mac)
	return args.Bool(0), args.Error(1)
}

func (m *MockUDNService) LookupByMAC(ctx context.Context, mac string) (*models.Assignment, error) {
	args := m.Called(ctx, mac)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *MockUDNService) LookupByID(ctx context.Context, udnID int) (*models.Assignment, error) {
	args := m.Called(ctx, udnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *MockUDNService) ListActive(ctx context.Context) ([]*models.Assignment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Assignment), args.Error(1)
}

func (m *MockUDNService) History(ctx context.Context, userID int64) ([]*models.Assignment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Assignment), args.Error(1)
}

func (m *MockUDNService) NextAvailable(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUDNService) Status(ctx context.Context) (*udn.PoolStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*udn.PoolStatus), args.Error(1)
}

func (m *MockUDNService) RenderUsers(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockPinger is a mock database health check
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performRequest(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]any {
	var response map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return response
}
