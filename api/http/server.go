// Package http is the REST surface over the engine. It validates input,
// converts decimal strings to the engine's fixed point, and maps rejection
// kinds to status codes.
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hermes/domain/market"
	"hermes/domain/wallet"
	"hermes/infra/metrics"
	"hermes/service"
)

type Server struct {
	engine *service.Engine
	router *gin.Engine
	log    *zap.Logger
}

func NewServer(engine *service.Engine, m *metrics.Metrics, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine: engine,
		router: gin.New(),
		log:    log,
	}

	s.router.Use(s.requestLogger(), gin.Recovery())

	s.router.GET("/healthz", s.health)
	s.router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := s.router.Group("/v1")
	{
		v1.GET("/markets", s.listMarkets)
		v1.POST("/markets", s.createMarket)
		v1.POST("/orders", s.placeOrder)
		v1.DELETE("/orders", s.cancelOrder)
		v1.POST("/orders/cancel-all", s.cancelAll)
		v1.POST("/deposits", s.deposit)
		v1.POST("/withdrawals", s.withdraw)
		v1.GET("/book", s.book)
		v1.GET("/balances", s.balance)
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "seq": s.engine.LastSeq()})
}

func (s *Server) listMarkets(c *gin.Context) {
	pairs := s.engine.Markets()
	out := make([]gin.H, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, gin.H{"coin": p.Coin, "base": p.Base, "pair": p.String()})
	}
	c.JSON(http.StatusOK, gin.H{"markets": out})
}

func (s *Server) createMarket(c *gin.Context) {
	var req createMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.FeePercent <= 0 || req.FeePercent >= 100 {
		badRequest(c, errors.New("fee_percent out of range"))
		return
	}

	cfg := market.Config{
		FeeDivisor:         market.ToFeeDivisor(req.FeePercent),
		MaxOpenLimitOrders: req.MaxOpenLimitOrders,
		MaxOpenStopOrders:  req.MaxOpenStopOrders,
	}
	res, err := s.engine.CreateMarket(c.Request.Context(), market.CoinPair{Coin: req.Coin, Base: req.Base}, cfg)
	if err != nil {
		s.reject(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"seq": res.Seq})
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		badRequest(c, err)
		return
	}
	typ, err := parseOrderType(req.Type)
	if err != nil {
		badRequest(c, err)
		return
	}
	amount, err := parseFixed(req.Amount)
	if err != nil {
		badRequest(c, err)
		return
	}

	var price, trigger int64
	if typ != market.OrderTypeMarket {
		if price, err = parseFixed(req.Price); err != nil {
			badRequest(c, err)
			return
		}
	}
	if typ == market.OrderTypeStopLimit {
		if trigger, err = parseFixed(req.Trigger); err != nil {
			badRequest(c, err)
			return
		}
	}

	pair := market.CoinPair{Coin: req.Coin, Base: req.Base}
	res, err := s.engine.PlaceOrder(c.Request.Context(), pair, side, typ, req.UserID, amount, price, trigger)
	if err != nil {
		s.reject(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"seq":      res.Seq,
		"order_id": res.OrderID,
		"events":   toEventResponses(res.Events),
	})
}

func (s *Server) cancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		badRequest(c, err)
		return
	}
	typ, err := parseOrderType(req.Type)
	if err != nil || typ == market.OrderTypeMarket {
		badRequest(c, errors.New("type must be limit or stop_limit"))
		return
	}
	price, err := parseFixed(req.Price)
	if err != nil {
		badRequest(c, err)
		return
	}

	pair := market.CoinPair{Coin: req.Coin, Base: req.Base}
	res, err := s.engine.CancelOrder(c.Request.Context(), pair, side, typ, req.OrderID, price)
	if err != nil {
		s.reject(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seq": res.Seq, "order_id": res.OrderID})
}

func (s *Server) cancelAll(c *gin.Context) {
	var req cancelAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	// Omitting the pair cancels across every market.
	if req.Coin == 0 && req.Base == 0 {
		res, err := s.engine.CancelAllUserEverywhere(c.Request.Context(), req.UserID)
		if err != nil {
			s.reject(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"seq": res.Seq, "order_ids": res.IDs, "by_market": res.ByMarket})
		return
	}

	pair := market.CoinPair{Coin: req.Coin, Base: req.Base}
	res, err := s.engine.CancelAllUser(c.Request.Context(), pair, req.UserID)
	if err != nil {
		s.reject(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seq": res.Seq, "order_ids": res.IDs})
}

func (s *Server) deposit(c *gin.Context) {
	var req fundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	amount, err := parseFixed(req.Amount)
	if err != nil {
		badRequest(c, err)
		return
	}

	res, err := s.engine.Deposit(c.Request.Context(), req.AssetID, req.UserID, amount)
	if err != nil {
		s.reject(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seq": res.Seq})
}

func (s *Server) withdraw(c *gin.Context) {
	var req fundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	amount, err := parseFixed(req.Amount)
	if err != nil {
		badRequest(c, err)
		return
	}

	res, err := s.engine.Withdraw(c.Request.Context(), req.AssetID, req.UserID, amount)
	if err != nil {
		s.reject(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seq": res.Seq})
}

func (s *Server) book(c *gin.Context) {
	pair, ok := pairQuery(c)
	if !ok {
		return
	}
	side, err := parseSide(c.Query("side"))
	if err != nil {
		badRequest(c, err)
		return
	}
	typ := market.OrderTypeLimit
	if t := c.Query("type"); t != "" {
		if typ, err = parseOrderType(t); err != nil || typ == market.OrderTypeMarket {
			badRequest(c, errors.New("type must be limit or stop_limit"))
			return
		}
	}

	entries, err := s.engine.Book(pair, side, typ)
	if err != nil {
		s.reject(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": toBookResponse(entries)})
}

func (s *Server) balance(c *gin.Context) {
	assetID, err := strconv.ParseInt(c.Query("asset_id"), 10, 32)
	if err != nil {
		badRequest(c, errors.New("invalid asset_id"))
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		badRequest(c, errors.New("invalid user_id"))
		return
	}

	total, inOrder, err := s.engine.Balance(int32(assetID), userID)
	if err != nil {
		s.reject(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":     formatFixed(total),
		"in_order":  formatFixed(inOrder),
		"available": formatFixed(total - inOrder),
	})
}

func pairQuery(c *gin.Context) (market.CoinPair, bool) {
	coin, err := strconv.ParseInt(c.Query("coin"), 10, 32)
	if err != nil {
		badRequest(c, errors.New("invalid coin"))
		return market.CoinPair{}, false
	}
	base, err := strconv.ParseInt(c.Query("base"), 10, 32)
	if err != nil {
		badRequest(c, errors.New("invalid base"))
		return market.CoinPair{}, false
	}
	return market.CoinPair{Coin: int32(coin), Base: int32(base)}, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// reject maps engine rejections to status codes.
func (s *Server) reject(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var merr *market.Error
	switch {
	case errors.As(err, &merr):
		switch merr.Kind {
		case market.KindInvalidIDPrice:
			status = http.StatusNotFound
		case market.KindInternal:
			status = http.StatusInternalServerError
		default:
			status = http.StatusUnprocessableEntity
		}
	case errors.Is(err, service.ErrUnknownMarket), errors.Is(err, wallet.ErrUnknownWallet):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrMarketExists), errors.Is(err, wallet.ErrWalletExists):
		status = http.StatusConflict
	case errors.Is(err, wallet.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, wallet.ErrInvalidAmount):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.log.Error("command failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
