package models

// Stream message kinds pushed to websocket subscribers.
const (
	MessageStatus    = "status"
	MessageProgress  = "progress"
	MessageComplete  = "complete"
	MessageError     = "error"
	MessageHeartbeat = "heartbeat"
)

// StreamMessage is one typed event on a job's push channel.
type StreamMessage struct {
	Type             string    `json:"type"`
	Status           JobStatus `json:"status,omitempty"`
	Progress         float64   `json:"progress"`
	CurrentIteration int       `json:"current_iteration,omitempty"`
	TotalIterations  int       `json:"total_iterations,omitempty"`
	TrajectoryPoints int       `json:"trajectory_points,omitempty"`
	ImageBase64      string    `json:"image_base64,omitempty"`
	Error            string    `json:"error,omitempty"`
}

// ProgressMessage builds a progress event from a snapshot.
func ProgressMessage(s Snapshot) StreamMessage {
	return StreamMessage{
		Type:             MessageProgress,
		Status:           s.Status,
		Progress:         s.Progress,
		CurrentIteration: s.CurrentIteration,
		TotalIterations:  s.TotalIterations,
		TrajectoryPoints: s.TrajectoryPoints,
	}
}

// HeartbeatMessage builds a keep-alive event carrying last known progress.
func HeartbeatMessage(s Snapshot) StreamMessage {
	return StreamMessage{
		Type:     MessageHeartbeat,
		Status:   s.Status,
		Progress: s.Progress,
	}
}
