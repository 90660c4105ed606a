package service

// MsgDashboardUpdate carries a dashboard.Snapshot to connected viewers
const MsgDashboardUpdate = "dashboard_update"

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToCampaign(campaignID string, msgType string, payload interface{})
	DisconnectCampaign(campaignID string)
}
