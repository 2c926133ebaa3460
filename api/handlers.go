package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/gas"
	"github.com/michaelpento.lv/triscan/scanner"
	"github.com/michaelpento.lv/triscan/types"
	"go.uber.org/zap"
)

const scanTip = "Try reducing amount or using a simpler strategy"

// Request defaults for fields a client leaves out
const (
	defaultNetwork      = "arbitrum"
	defaultAmount       = 1000.0
	defaultStrategy     = "defi"
	defaultMinNetProfit = 0.3
)

type scanBody struct {
	Network      *string  `json:"network"`
	Amount       *float64 `json:"amount"`
	Strategy     *string  `json:"strategy"`
	MinNetProfit *float64 `json:"minNetProfit"`
	MaxPaths     *int     `json:"maxPaths"`
}

func (b scanBody) request() scanner.ScanRequest {
	req := scanner.ScanRequest{
		Network:      defaultNetwork,
		Amount:       defaultAmount,
		Strategy:     defaultStrategy,
		MinNetProfit: defaultMinNetProfit,
	}
	if b.Network != nil {
		req.Network = *b.Network
	}
	if b.Amount != nil {
		req.Amount = *b.Amount
	}
	if b.Strategy != nil {
		req.Strategy = *b.Strategy
	}
	if b.MinNetProfit != nil {
		req.MinNetProfit = *b.MinNetProfit
	}
	if b.MaxPaths != nil {
		req.MaxPaths = *b.MaxPaths
	}
	return req
}

type scanInfo struct {
	Network            string  `json:"network"`
	Strategy           string  `json:"strategy"`
	Amount             float64 `json:"amount"`
	MinNetProfit       float64 `json:"minNetProfit"`
	PathsScanned       int     `json:"pathsScanned"`
	ScanTimeMs         int64   `json:"scanTimeMs"`
	OpportunitiesFound int     `json:"opportunitiesFound"`
}

type scanMetadata struct {
	Timestamp string `json:"timestamp"`
	GasPrice  string `json:"gasPrice"`
}

type scanResponse struct {
	Success       bool                 `json:"success"`
	Scan          scanInfo             `json:"scan"`
	Opportunities []*types.Opportunity `json:"opportunities"`
	Summary       types.Summary        `json:"summary"`
	Metadata      scanMetadata         `json:"metadata"`
}

type analyzeBody struct {
	Network string          `json:"network"`
	Path    []string        `json:"path"`
	Amount  *float64        `json:"amount"`
	Fees    []types.FeeTier `json:"fees"`
}

type tokenEntry struct {
	Symbol       string  `json:"symbol"`
	Address      string  `json:"address"`
	Decimals     uint8   `json:"decimals"`
	MinLiquidity float64 `json:"minLiquidity"`
}

type tokensResponse struct {
	Network     string                          `json:"network"`
	TotalTokens int                             `json:"totalTokens"`
	Categories  map[types.Category][]tokenEntry `json:"categories"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body scanBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.scanner.Scan(r.Context(), body.request())
	if err != nil {
		if status, ok := clientError(err); ok {
			writeError(w, status, message(err))
			return
		}
		s.logger.Error("Scan failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
			"tip":   scanTip,
		})
		return
	}

	opps := res.Opportunities
	if opps == nil {
		opps = []*types.Opportunity{}
	}
	writeJSON(w, http.StatusOK, scanResponse{
		Success: true,
		Scan: scanInfo{
			Network:            res.Network,
			Strategy:           res.Strategy,
			Amount:             res.Amount,
			MinNetProfit:       res.MinNetProfit,
			PathsScanned:       res.PathsScanned,
			ScanTimeMs:         res.Elapsed.Milliseconds(),
			OpportunitiesFound: res.Found,
		},
		Opportunities: opps,
		Summary:       res.Summary,
		Metadata: scanMetadata{
			Timestamp: res.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			GasPrice:  gas.WeiToGwei(res.Gas.MaxFeePerGas).String(),
		},
	})
}

func (s *Server) handleAnalyzePath(w http.ResponseWriter, r *http.Request) {
	var body analyzeBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	amount := defaultAmount
	if body.Amount != nil {
		amount = *body.Amount
	}

	analysis, err := s.scanner.Analyze(r.Context(), scanner.AnalyzeRequest{
		Network: body.Network,
		Path:    body.Path,
		Amount:  amount,
		Fees:    body.Fees,
	})
	if err != nil {
		if status, ok := clientError(err); ok {
			writeError(w, status, message(err))
			return
		}
		s.logger.Error("Path analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]*scanner.Analysis{"analysis": analysis})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["network"]
	network, ok := s.scanner.Catalog().Network(id)
	if !ok {
		writeError(w, http.StatusBadRequest, "Network not found")
		return
	}

	categories := make(map[types.Category][]tokenEntry)
	for _, t := range network.Tokens {
		categories[t.Category] = append(categories[t.Category], tokenEntry{
			Symbol:       t.Symbol,
			Address:      t.Address.Hex(),
			Decimals:     t.Decimals,
			MinLiquidity: t.MinLiquidity,
		})
	}

	writeJSON(w, http.StatusOK, tokensResponse{
		Network:     network.ID,
		TotalTokens: len(network.Tokens),
		Categories:  categories,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.scanner.Health(r.Context())
	if err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, health)
}

// decodeBody reads a JSON body; an empty body leaves v untouched
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// clientError maps request errors to their HTTP status
func clientError(err error) (int, bool) {
	switch {
	case errors.Is(err, scanner.ErrUnknownNetwork),
		errors.Is(err, scanner.ErrUnknownStrategy),
		errors.Is(err, scanner.ErrInvalidRequest):
		return http.StatusBadRequest, true
	case errors.Is(err, dex.ErrNoLiquidity):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, scanner.ErrQuoteUnavailable):
		return http.StatusBadGateway, true
	}
	return 0, false
}

// message drops the sentinel prefix of a request error, e.g.
// "unknown network: Network base not supported" becomes "Network base not supported"
func message(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{scanner.ErrUnknownNetwork, scanner.ErrUnknownStrategy, scanner.ErrInvalidRequest} {
		if errors.Is(err, sentinel) {
			return strings.TrimPrefix(msg, sentinel.Error()+": ")
		}
	}
	if errors.Is(err, dex.ErrNoLiquidity) {
		return "No liquidity" + strings.TrimPrefix(msg, dex.ErrNoLiquidity.Error())
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
