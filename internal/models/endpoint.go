package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Endpoint lifecycle status. The monitor only ever demotes ONLINE to OFFLINE;
// bringing an endpoint back online is owned by external inventory management.
const (
	EndpointOnline  = "ONLINE"
	EndpointOffline = "OFFLINE"
)

// Endpoint is a managed host that enforcement actions target.
type Endpoint struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Hostname  string    `gorm:"uniqueIndex" json:"hostname"`
	IPAddress string    `json:"ip_address"`
	OSType    string    `json:"os_type"` // e.g. "windows_server_2019", "ubuntu_22.04"
	Status    string    `gorm:"index" json:"status"`
	LastCheck time.Time `json:"last_check"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Endpoint) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = EndpointOnline
	}
	return
}

// IsWindows reports whether the endpoint belongs to the Windows OS family.
func (e Endpoint) IsWindows() bool {
	return strings.Contains(strings.ToLower(e.OSType), "windows")
}

// Address returns the connection address, preferring the IP over the hostname.
func (e Endpoint) Address() string {
	if e.IPAddress != "" {
		return e.IPAddress
	}
	return e.Hostname
}
