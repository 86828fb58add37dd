package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/davidjwilkins/declarative-settlements/consts"
	"github.com/davidjwilkins/declarative-settlements/errors"
	"github.com/davidjwilkins/declarative-settlements/settlement"
	"github.com/davidjwilkins/declarative-settlements/settlement/resolver"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether the settlement services behind the reconciler are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	router     *gin.Engine
	logger     *zap.Logger
	reconciler *settlement.Reconciler
	validator  *settlement.Validator
	pinger     Pinger
	validate   *validator.Validate

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer builds the HTTP surface. pinger may be nil; gatherer defaults to the
// global prometheus registry.
func NewServer(logger *zap.Logger, reconciler *settlement.Reconciler, v *settlement.Validator, pinger Pinger, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		logger:     logger.Named("api"),
		reconciler: reconciler,
		validator:  v,
		pinger:     pinger,
		validate:   validator.New(),
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", s.healthCheck)
		v1.POST("/payments/status", s.paymentStatus)
		v1.POST("/orders/:order_id/validate", s.validateOrder)
	}
	s.router = router
	return s
}

// Router returns the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("Starting API server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) healthCheck(c *gin.Context) {
	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type paymentLine struct {
	AttemptID  string            `json:"attempt_id"`
	InvoiceID  string            `json:"invoice_id"`
	MethodID   string            `json:"pm_id"`
	OrderID    string            `json:"order_id"`
	LocalState consts.LocalState `json:"local_state" validate:"omitempty,oneof=pending awaiting-confirmation confirmed expired unknown"`
}

func (l paymentLine) attempt() *resolver.PaymentAttempt {
	id := l.AttemptID
	if id == "" {
		id = uuid.NewString()
	}
	return &resolver.PaymentAttempt{
		ID:              id,
		RemoteInvoiceID: l.InvoiceID,
		MethodID:        l.MethodID,
		OrderID:         l.OrderID,
		LocalState:      l.LocalState,
	}
}

type validateOrderRequest struct {
	PaymentLines []paymentLine `json:"payment_lines" validate:"dive"`
}

type outcomeResponse struct {
	AttemptID  string             `json:"attempt_id"`
	Kind       consts.OutcomeKind `json:"kind"`
	LocalState consts.LocalState  `json:"local_state"`
	Status     string             `json:"status,omitempty"`
	Notice     *resolver.Notice   `json:"notice,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func newOutcomeResponse(out settlement.Outcome) outcomeResponse {
	resp := outcomeResponse{
		AttemptID:  out.AttemptID,
		Kind:       out.Kind,
		LocalState: out.LocalState,
		Status:     out.Status,
		Notice:     out.Notice,
	}
	if out.Cause != nil {
		resp.Error = out.Cause.Error()
	}
	return resp
}

type validateOrderResponse struct {
	OrderID  string            `json:"order_id"`
	Ready    bool              `json:"ready"`
	Outcomes []outcomeResponse `json:"outcomes"`
	Error    string            `json:"error,omitempty"`
}

func (s *Server) bind(c *gin.Context, into interface{}) bool {
	if err := c.ShouldBindJSON(into); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := s.validate.Struct(into); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) paymentStatus(c *gin.Context) {
	var line paymentLine
	if !s.bind(c, &line) {
		return
	}
	out := s.reconciler.Reconcile(c.Request.Context(), line.attempt())
	status := http.StatusOK
	if out.Kind == consts.OutcomeKindRejected {
		status = http.StatusBadRequest
	}
	c.JSON(status, newOutcomeResponse(out))
}

func (s *Server) validateOrder(c *gin.Context) {
	orderID := c.Param("order_id")
	var req validateOrderRequest
	if !s.bind(c, &req) {
		return
	}
	attempts := make([]*resolver.PaymentAttempt, len(req.PaymentLines))
	for i, line := range req.PaymentLines {
		if line.OrderID == "" {
			line.OrderID = orderID
		}
		attempts[i] = line.attempt()
	}

	result, err := s.validator.ValidateOrder(c.Request.Context(), orderID, attempts)
	resp := validateOrderResponse{
		OrderID:  result.OrderID,
		Ready:    result.Ready,
		Outcomes: make([]outcomeResponse, len(result.Outcomes)),
	}
	for i, out := range result.Outcomes {
		resp.Outcomes[i] = newOutcomeResponse(out)
	}
	if err != nil {
		resp.Error = err.Error()
		c.JSON(http.StatusBadGateway, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
