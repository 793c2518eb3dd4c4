package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-gatepass-api/internal/dto"
	"github.com/noah-isme/sma-gatepass-api/internal/middleware"
	"github.com/noah-isme/sma-gatepass-api/internal/models"
	appErrors "github.com/noah-isme/sma-gatepass-api/pkg/errors"
)

type gatePassServiceMock struct {
	issueResp  *models.GatePass
	issueErr   error
	markResp   *models.GatePass
	markErr    error
	cancelResp *dto.CancelGatePassResult
	cancelErr  error
	listResp   *dto.GatePassListResponse
	listErr    error
	lastQuery  dto.GatePassQuery
	lastID     string

	issueCalled  bool
	outCalled    bool
	inCalled     bool
	cancelCalled bool
	listCalled   bool
}

func (m *gatePassServiceMock) Issue(ctx context.Context, req dto.IssueGatePassRequest, actor *models.JWTClaims) (*models.GatePass, error) {
	m.issueCalled = true
	return m.issueResp, m.issueErr
}

func (m *gatePassServiceMock) MarkOut(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePass, error) {
	m.outCalled = true
	m.lastID = id
	return m.markResp, m.markErr
}

func (m *gatePassServiceMock) MarkIn(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePass, error) {
	m.inCalled = true
	m.lastID = id
	return m.markResp, m.markErr
}

func (m *gatePassServiceMock) Cancel(ctx context.Context, id string, req dto.CancelGatePassRequest, actor *models.JWTClaims) (*dto.CancelGatePassResult, error) {
	m.cancelCalled = true
	m.lastID = id
	return m.cancelResp, m.cancelErr
}

func (m *gatePassServiceMock) Edit(ctx context.Context, id string, req dto.EditGatePassRequest, actor *models.JWTClaims) (*models.GatePass, error) {
	m.lastID = id
	return m.markResp, m.markErr
}

func (m *gatePassServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePassDetail, error) {
	m.lastID = id
	if m.markResp == nil {
		return nil, appErrors.ErrNotFound
	}
	return &models.GatePassDetail{GatePass: *m.markResp}, nil
}

func (m *gatePassServiceMock) List(ctx context.Context, query dto.GatePassQuery, actor *models.JWTClaims) (*dto.GatePassListResponse, error) {
	m.listCalled = true
	m.lastQuery = query
	return m.listResp, m.listErr
}

func (m *gatePassServiceMock) ClassRoster(ctx context.Context, classID string, actor *models.JWTClaims) ([]models.Student, error) {
	return nil, nil
}

func frontOfficeContext(w *httptest.ResponseRecorder) (*gin.Context, *gin.Engine) {
	c, engine := gin.CreateTestContext(w)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "fo-1", Role: models.RoleFrontOffice})
	return c, engine
}

func TestGatePassHandlerIssue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gatePassServiceMock{
		issueResp: &models.GatePass{ID: "pass-1", PassNo: "GP-MAIN-000001", Status: models.PassStatusIssued},
	}
	handler := NewGatePassHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.IssueGatePassRequest{
		Type:        models.PassTypeVisitor,
		VisitorName: "Budi",
		Reason:      "delivery",
	})
	w := httptest.NewRecorder()
	c, _ := frontOfficeContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/gate-passes", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Issue(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.issueCalled)
}

func TestGatePassHandlerIssueInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGatePassHandler(&gatePassServiceMock{}, nil)

	w := httptest.NewRecorder()
	c, _ := frontOfficeContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/gate-passes", bytes.NewBufferString(`{"type":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Issue(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGatePassHandlerMarkOut(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gatePassServiceMock{
		markResp: &models.GatePass{ID: "pass-1", Status: models.PassStatusOut},
	}
	handler := NewGatePassHandler(mockSvc, nil)

	w := httptest.NewRecorder()
	c, _ := frontOfficeContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/gate-passes/pass-1/out", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "pass-1"}}

	handler.MarkOut(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.outCalled)
	assert.Equal(t, "pass-1", mockSvc.lastID)
}

func TestGatePassHandlerMarkInConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gatePassServiceMock{
		markErr: appErrors.Clone(appErrors.ErrInvalidTransition, "cannot apply in: pass is ISSUED"),
	}
	handler := NewGatePassHandler(mockSvc, nil)

	w := httptest.NewRecorder()
	c, _ := frontOfficeContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/gate-passes/pass-1/in", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "pass-1"}}

	handler.MarkIn(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, mockSvc.inCalled)
}

func TestGatePassHandlerCancelWithoutBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gatePassServiceMock{
		cancelResp: &dto.CancelGatePassResult{
			Pass: &models.GatePass{ID: "pass-1", Status: models.PassStatusCancelled},
		},
	}
	handler := NewGatePassHandler(mockSvc, nil)

	w := httptest.NewRecorder()
	c, _ := frontOfficeContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/gate-passes/pass-1/cancel", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "pass-1"}}

	handler.Cancel(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.cancelCalled)
}

func TestGatePassHandlerListForwardsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gatePassServiceMock{
		listResp: &dto.GatePassListResponse{},
	}
	handler := NewGatePassHandler(mockSvc, nil)

	w := httptest.NewRecorder()
	c, _ := frontOfficeContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/gate-passes?status=OUT&type=VISITOR&q=budi&limit=10", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.listCalled)
	assert.Equal(t, "OUT", mockSvc.lastQuery.Status)
	assert.Equal(t, "VISITOR", mockSvc.lastQuery.Type)
	assert.Equal(t, "budi", mockSvc.lastQuery.Q)
	assert.Equal(t, 10, mockSvc.lastQuery.Limit)
}

func TestGatePassHandlerGetUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGatePassHandler(&gatePassServiceMock{}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/gate-passes/pass-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "pass-1"}}

	handler.Get(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
