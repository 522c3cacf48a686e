// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fuelcore/mkr5ctl/pkg/mkr5"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the bus as an HTTP API",
	Long: `Run an HTTP API over one bus connection, so forecourt software can
query pumps without speaking the serial protocol.

Endpoints:
  GET  /healthz
  GET  /pumps                          scan the bus, list answering pumps
  GET  /pumps/:address/status          decoded nozzle status
  GET  /pumps/:address/filling-info    last delivery figures
  POST /pumps/:address/command         {"command": "authorize", "nozzle": 1}

The bus is half-duplex: requests that touch it are serialized, so a slow
scan delays concurrent callers.

Examples:
  mkr5ctl serve --listen :8086 --port /dev/ttyS4`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", ":8086", "HTTP listen address")
}

// busAPI serializes HTTP access to the half-duplex session.
type busAPI struct {
	mu      sync.Mutex
	session *mkr5.Session
	log     *zap.Logger
}

var commandNames = map[string]mkr5.Command{
	"status":    mkr5.CmdReturnStatus,
	"reset":     mkr5.CmdResetNozzle,
	"authorize": mkr5.CmdAuthorizeNozzle,
	"pause":     mkr5.CmdPauseDelivery,
	"resume":    mkr5.CmdResumeDelivery,
	"stop":      mkr5.CmdStopNozzle,
	"disable":   mkr5.CmdDisableNozzle,
}

func runServe(cmd *cobra.Command, args []string) error {
	s, connInfo, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()
	fmt.Fprintf(os.Stderr, "Connected: %s\n", connInfo)

	api := &busAPI{session: s, log: newLogger()}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connection": connInfo})
	})
	r.GET("/pumps", api.listPumps)
	r.GET("/pumps/:address/status", api.pumpStatus)
	r.GET("/pumps/:address/filling-info", api.fillingInfo)
	r.POST("/pumps/:address/command", api.pumpCommand)

	fmt.Fprintf(os.Stderr, "Listening on %s\n", serveListen)
	return r.Run(serveListen)
}

func (a *busAPI) addressParam(c *gin.Context) (byte, bool) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return address, true
}

func statusJSON(st mkr5.PumpStatus) gin.H {
	return gin.H{
		"address":     fmt.Sprintf("0x%02X", st.Address),
		"nozzle":      st.NozzleNumber,
		"statusCode":  uint8(st.Status),
		"status":      st.Description,
		"nozzleOn":    st.NozzleOn,
		"rfTagSensed": st.RFTagSensed,
		"errorFlag":   st.ErrorFlag,
	}
}

func (a *busAPI) listPumps(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pumps := []gin.H{}
	for res := range a.session.ScanRange(mkr5.AddressMin, mkr5.AddressMax) {
		if !res.Present {
			continue
		}
		entry := gin.H{"address": fmt.Sprintf("0x%02X", res.Address)}
		if res.Status.Valid {
			entry["status"] = statusJSON(res.Status)
		}
		pumps = append(pumps, entry)
	}
	c.JSON(http.StatusOK, gin.H{"pumps": pumps})
}

func (a *busAPI) pumpStatus(c *gin.Context) {
	address, ok := a.addressParam(c)
	if !ok {
		return
	}
	nozzle := uint8(1)
	if n := c.Query("nozzle"); n != "" {
		v, err := parseNozzle(n)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		nozzle = v
	}

	a.mu.Lock()
	st := a.session.GetStatus(address, nozzle)
	a.mu.Unlock()

	if !st.Valid {
		c.JSON(http.StatusBadGateway, gin.H{"error": "pump did not answer"})
		return
	}
	c.JSON(http.StatusOK, statusJSON(st))
}

func (a *busAPI) fillingInfo(c *gin.Context) {
	address, ok := a.addressParam(c)
	if !ok {
		return
	}

	a.mu.Lock()
	fi := a.session.GetFillingInfo(address, 1)
	a.mu.Unlock()

	if !fi.Valid {
		c.JSON(http.StatusBadGateway, gin.H{"error": "pump did not answer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address": fmt.Sprintf("0x%02X", fi.Address),
		"volume":  fi.Volume, // thousandths of a litre
		"amount":  fi.Amount, // hundredths of the currency unit
		"price":   fi.Price,  // thousandths per litre
	})
}

func (a *busAPI) pumpCommand(c *gin.Context) {
	address, ok := a.addressParam(c)
	if !ok {
		return
	}

	var req struct {
		Command string `json:"command" binding:"required"`
		Nozzle  uint8  `json:"nozzle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code, ok := commandNames[strings.ToLower(req.Command)]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown command: " + req.Command})
		return
	}
	if req.Nozzle == 0 {
		req.Nozzle = 1
	} else if req.Nozzle > 15 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nozzle out of range"})
		return
	}

	a.mu.Lock()
	raw, err := a.session.SendCommand(address, code, req.Nozzle, nil)
	a.mu.Unlock()

	if err == mkr5.ErrNoResponse {
		c.JSON(http.StatusBadGateway, gin.H{"error": "pump did not answer"})
		return
	}
	if err != nil {
		a.log.Warn("command failed", zap.Uint8("address", address), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	f := mkr5.Decode(raw)
	resp := gin.H{
		"command": mkr5.CommandName(code),
		"reply":   mkr5.FormatFrame(f),
	}
	if st := mkr5.ParseStatus(f); st.Valid {
		st.Address = address
		resp["status"] = statusJSON(st)
	}
	c.JSON(http.StatusOK, resp)
}
