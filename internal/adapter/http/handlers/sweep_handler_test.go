package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mecanica_marketplace/internal/adapter/http/handlers/mocks"
	"mecanica_marketplace/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

func TestSweepHandler_RunExpirationSweep(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns report", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockISweepUseCase(ctrl)
		h := NewSweepHandler(uc)

		uc.EXPECT().RunExpirationSweep(gomock.Any()).Return(usecase.SweepReport{
			ExpiredJobIDs:  []string{"job_1"},
			ExpiringJobIDs: []string{"job_2"},
		}, nil)

		r := gin.New()
		r.POST("/v1/sweeps/expiration", h.RunExpirationSweep)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sweeps/expiration", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		env := decodeEnvelope(t, w)
		report, _ := env.Entity.(map[string]any)
		expired, _ := report["expired_job_ids"].([]any)
		if !env.OK || len(expired) != 1 || expired[0] != "job_1" {
			t.Fatalf("unexpected envelope %+v", env)
		}
	})

	t.Run("listing failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockISweepUseCase(ctrl)
		h := NewSweepHandler(uc)

		uc.EXPECT().RunExpirationSweep(gomock.Any()).Return(usecase.SweepReport{}, usecase.ErrDependencyFailure)

		r := gin.New()
		r.POST("/v1/sweeps/expiration", h.RunExpirationSweep)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sweeps/expiration", nil))
		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", w.Code)
		}
	})
}
