package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterVoterRequest struct {
	VoterID string `json:"voter_id"`
}

type RegisterCandidateRequest struct {
	CandidateID string `json:"candidate_id"`
}

type RegisterResponse struct {
	PrincipalID string `json:"principal_id"`
	Role        string `json:"role"`
}

type OpenVotingRequest struct {
	EndsAt string `json:"ends_at"` // RFC3339
}

type OpenVotingResponse struct {
	Phase  string `json:"phase"`
	EndsAt string `json:"ends_at"`
}

type CastVoteRequest struct {
	CandidateID string `json:"candidate_id"`
}

type CastVoteResponse struct {
	CandidateID   string `json:"candidate_id"`
	Votes         uint64 `json:"votes"`
	LeaderChanged bool   `json:"leader_changed"`
}

type VoterStatusResponse struct {
	VoterID    string `json:"voter_id"`
	Registered bool   `json:"registered"`
	HasVoted   bool   `json:"has_voted"`
}

type CandidateStatusResponse struct {
	CandidateID string `json:"candidate_id"`
	Registered  bool   `json:"registered"`
	Votes       uint64 `json:"votes"`
}

type StatusResponse struct {
	Phase        string `json:"phase"`
	EndsAt       string `json:"ends_at,omitempty"`
	LeaderID     string `json:"leader_id,omitempty"`
	LeaderVotes  uint64 `json:"leader_votes,omitempty"`
	LeaderExists bool   `json:"leader_exists"`
}

type WinnerResponse struct {
	WinnerID string `json:"winner_id"`
	Votes    uint64 `json:"votes"`
	Declared bool   `json:"declared"`
}

type ResultItem struct {
	CandidateID string `json:"candidate_id"`
	Votes       uint64 `json:"votes"`
	Rank        int    `json:"rank"`
}

type ResultsResponse struct {
	Items []ResultItem `json:"items"`
}

type AuditItem struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	SubjectID  string `json:"subject_id,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

type AuditResponse struct {
	Items []AuditItem `json:"items"`
}
