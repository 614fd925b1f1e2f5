package server

import (
	"net/http"

	"github.com/hashgraph-online/device-anchor-go/pkg/readings"
)

func (s *Server) handleSubmitReading(w http.ResponseWriter, r *http.Request) {
	var reading readings.SignedReading
	if err := decodeJSON(w, r, &reading); err != nil {
		writeError(w, s.logger, err)
		return
	}

	receipt, err := s.readings.Submit(r.Context(), reading)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}
