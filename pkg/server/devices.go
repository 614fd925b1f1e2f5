package server

import (
	"net/http"

	"github.com/hashgraph-online/device-anchor-go/pkg/signature"
)

type challengeRequest struct {
	MACAddress string `json:"macAddress"`
	PublicKey  string `json:"publicKey"`
}

type challengeResponse struct {
	Challenge string `json:"challenge"`
}

type registerRequest struct {
	PublicKey string              `json:"publicKey"`
	Challenge string              `json:"challenge"`
	Signature signature.Signature `json:"signature"`
}

type claimRequest struct {
	ClaimToken   string `json:"claimToken"`
	OwnerAddress string `json:"ownerAddress"`
}

type claimTokenRequest struct {
	PublicKey string `json:"publicKey"`
}

type revokeRequest struct {
	IdentityTokenAddress string              `json:"identityTokenAddress"`
	Signature            signature.Signature `json:"signature"`
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	challenge, err := s.identity.IssueChallenge(r.Context(), req.MACAddress, req.PublicKey)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, challengeResponse{Challenge: challenge})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	registration, err := s.identity.VerifyChallenge(r.Context(), req.PublicKey, req.Challenge, req.Signature)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	status := http.StatusOK
	if registration.ClaimToken != "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, registration)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	result, err := s.identity.ClaimDevice(r.Context(), req.ClaimToken, req.OwnerAddress)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecoverClaimToken(w http.ResponseWriter, r *http.Request) {
	var req claimTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	result, err := s.identity.RecoverClaimToken(r.Context(), req.PublicKey)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	result, err := s.identity.RevokeDevice(r.Context(), req.IdentityTokenAddress, req.Signature)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
