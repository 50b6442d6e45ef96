package walletcore

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lynxwallet/walletcore/schema"
)

func (w *Wallet) runAPI(port string) {
	w.registerRoutes()
	if err := w.engine.Run(port); err != nil {
		panic(err)
	}
}

func (w *Wallet) registerRoutes() {
	r := w.engine
	r.Use(CORSMiddleware())
	r.Use(LimiterMiddleware(600, "M"))
	v1 := r.Group("/")
	{
		v1.GET("/accounts", w.getAccounts)
		v1.POST("/accounts/import", w.importAccount)
		v1.POST("/accounts/active/:accountId", w.setActiveAccount)
		v1.POST("/accounts/key", w.createKeyPair)

		v1.POST("/sync", w.syncAll)
		v1.POST("/sync/:accountId", w.syncAccount)

		v1.GET("/balances/:accountId", w.getBalances)
		v1.GET("/contracts", w.getContracts)
		v1.GET("/history/:accountId", w.getHistory)
		v1.GET("/contacts", w.getContacts)

		v1.POST("/transfer", w.transfer)

		v1.POST("/esr", w.handleSigningRequest)
		v1.POST("/esr/accept", w.acceptRequest)
		v1.POST("/esr/decline", w.declineRequest)

		v1.GET("/sessions", w.getSessions)
		v1.DELETE("/sessions/:sid", w.revokeSession)

		v1.GET("/events", w.serveEvents)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (w *Wallet) getAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, w.Accounts.Items())
}

func (w *Wallet) importAccount(c *gin.Context) {
	req := schema.ImportAccountReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	accounts, err := w.ImportAccount(req.ChainID, req.PrivateKey)
	if err != nil {
		errorResponseKind(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (w *Wallet) setActiveAccount(c *gin.Context) {
	if err := w.SetActiveAccount(c.Param("accountId")); err != nil {
		errorResponseKind(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (w *Wallet) createKeyPair(c *gin.Context) {
	pair, err := w.CreateKeyPair()
	if err != nil {
		errorResponseKind(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (w *Wallet) syncAll(c *gin.Context) {
	if err := w.SyncAllAccounts(); err != nil {
		errorResponseKind(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (w *Wallet) syncAccount(c *gin.Context) {
	if err := w.SyncAccount(c.Param("accountId")); err != nil {
		errorResponseKind(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (w *Wallet) getBalances(c *gin.Context) {
	accountID := c.Param("accountId")
	balances := make([]schema.TokenBalance, 0)
	for _, b := range w.Balances.Items() {
		if b.AccountID == accountID {
			balances = append(balances, b)
		}
	}
	c.JSON(http.StatusOK, balances)
}

func (w *Wallet) getContracts(c *gin.Context) {
	c.JSON(http.StatusOK, w.Contracts.Items())
}

func (w *Wallet) getHistory(c *gin.Context) {
	actions, err := w.wdb.GetTransferActions(c.Param("accountId"), c.Query("balanceId"), queryInt(c, "offset"), queryInt(c, "limit"))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, actions)
}

func (w *Wallet) getContacts(c *gin.Context) {
	c.JSON(http.StatusOK, w.Contacts.Items())
}

func (w *Wallet) transfer(c *gin.Context) {
	req := schema.TransferReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	resp, err := w.Transfer(req)
	if err != nil {
		errorResponseKind(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (w *Wallet) handleSigningRequest(c *gin.Context) {
	req := schema.HandleRequestReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	resolved, err := w.HandleRequest(req.URI, req.Signer)
	if err != nil {
		errorResponseKind(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.HandleRequestResp{
		SID:      resolved.Request.SID,
		Identity: resolved.Request.Identity,
		Display:  resolved.Display,
	})
}

func (w *Wallet) acceptRequest(c *gin.Context) {
	result, err := w.Accept()
	if err != nil {
		errorResponseKind(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.HandleRequestResp{
		SID:         result.SID,
		CallbackURL: result.CallbackURL,
		TxID:        result.TxID,
		BlockNum:    result.BlockNum,
	})
}

func (w *Wallet) declineRequest(c *gin.Context) {
	if err := w.Decline(); err != nil {
		errorResponseKind(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (w *Wallet) getSessions(c *gin.Context) {
	c.JSON(http.StatusOK, w.ListSessions())
}

func (w *Wallet) revokeSession(c *gin.Context) {
	if err := w.RevokeSession(c.Param("sid")); err != nil {
		errorResponseKind(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (w *Wallet) serveEvents(c *gin.Context) {
	if err := w.hub.Serve(c.Writer, c.Request); err != nil {
		log.Warn("websocket upgrade failed", "err", err)
	}
}

func errorResponse(c *gin.Context, status int, err error) {
	c.JSON(status, schema.RespErr{Err: err.Error()})
}

// errorResponseKind maps the failure taxonomy onto HTTP status codes.
func errorResponseKind(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case IsKind(err, KindValidation), IsKind(err, KindSigningRequest):
		status = http.StatusBadRequest
	case IsKind(err, KindSecretStore):
		status = http.StatusInternalServerError
	}
	errorResponse(c, status, err)
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
