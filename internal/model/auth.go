package model

import "github.com/golang-jwt/jwt/v5"

// HostClaims are the JWT claims the auth provider issues to campaign owners
type HostClaims struct {
	HostID      string   `json:"hostId"`
	CampaignIDs []string `json:"campaignIds,omitempty"` // empty = all campaigns of the host
	jwt.RegisteredClaims
}

// CanView reports whether the claims grant access to a campaign
func (c *HostClaims) CanView(campaignID string) bool {
	if len(c.CampaignIDs) == 0 {
		return true
	}
	for _, id := range c.CampaignIDs {
		if id == campaignID {
			return true
		}
	}
	return false
}
