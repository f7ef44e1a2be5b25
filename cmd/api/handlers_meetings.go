package main

import (
	"net/http"

	"creatorflow/meeting"
)

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req meeting.CreateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	m, err := s.meetingService.Schedule(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, newMeetingResponse(m))
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := s.meetingService.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	items := make([]meetingResponse, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, newMeetingResponse(m))
	}
	writeSuccess(w, http.StatusOK, items)
}
