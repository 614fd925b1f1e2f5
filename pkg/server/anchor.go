package server

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/hashgraph-online/device-anchor-go/pkg/anchor"
	"github.com/hashgraph-online/device-anchor-go/pkg/proofstore"
	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

type proofResponse struct {
	Proof        proofstore.MerkleProof     `json:"proof"`
	Verification *anchor.LedgerVerification `json:"verification,omitempty"`
}

type verifyRootRequest struct {
	Payloads []string `json:"payloads"`
	Root     string   `json:"root"`
}

func (s *Server) authorizeOperator(r *http.Request) error {
	provided := strings.TrimSpace(r.Header.Get(OperatorSecretHeader))
	if provided == "" {
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			provided = strings.TrimSpace(token)
		}
	}
	if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(s.operatorSecret)) != 1 {
		return shared.NewAuthenticationError("operator secret is missing or invalid")
	}
	return nil
}

func (s *Server) handleAnchor(w http.ResponseWriter, r *http.Request) {
	if err := s.authorizeOperator(r); err != nil {
		writeError(w, s.logger, err)
		return
	}

	result, err := s.anchorer.Run(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetProof returns the stored proof. With ?verify=true the anchor
// message is also checked on the ledger.
func (s *Server) handleGetProof(w http.ResponseWriter, r *http.Request) {
	leafHash := r.PathValue("leafHash")

	verify := false
	if raw := r.URL.Query().Get("verify"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, s.logger, shared.NewValidationError("verify must be a boolean"))
			return
		}
		verify = parsed
	}

	if !verify {
		proof, err := s.verifier.Proof(r.Context(), leafHash)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, proofResponse{Proof: proof})
		return
	}

	proof, verification, err := s.verifier.VerifyLeaf(r.Context(), leafHash)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, proofResponse{Proof: proof, Verification: &verification})
}

func (s *Server) handleVerifyRoot(w http.ResponseWriter, r *http.Request) {
	var req verifyRootRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	result, err := s.verifier.VerifyWindow(req.Payloads, req.Root)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
