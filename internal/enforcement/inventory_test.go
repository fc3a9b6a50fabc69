package enforcement

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kestrelsec/aegis/internal/models"
)

func TestBuildInventoryGrouping(t *testing.T) {
	inv := BuildInventory([]models.Endpoint{
		{Hostname: "win-server-01", IPAddress: "10.0.0.10", OSType: "windows_server_2019"},
		{Hostname: "db-server-02", IPAddress: "10.0.0.11", OSType: "ubuntu_22.04"},
		{Hostname: "workstation-07", IPAddress: "10.0.1.7", OSType: "windows_11"},
		{Hostname: "laptop-03", OSType: "ubuntu_22.04"},
	})

	require.Equal(t, 4, inv.Size())

	win := inv.Hosts(GroupWindowsServers)
	require.Len(t, win, 1)
	require.Equal(t, "10.0.0.10", win["win-server-01"].AnsibleHost)
	require.Equal(t, "administrator", win["win-server-01"].AnsibleUser)

	linux := inv.Hosts(GroupLinuxServers)
	require.Len(t, linux, 1)
	require.Equal(t, "ubuntu", linux["db-server-02"].AnsibleUser)

	ws := inv.Hosts(GroupWorkstations)
	require.Len(t, ws, 2)
	require.Equal(t, "administrator", ws["workstation-07"].AnsibleUser)
	// No IP recorded: fall back to hostname.
	require.Equal(t, "laptop-03", ws["laptop-03"].AnsibleHost)
}

func TestInventoryRender(t *testing.T) {
	inv := BuildInventory([]models.Endpoint{
		{Hostname: "web-server-01", IPAddress: "10.0.0.5", OSType: "ubuntu_22.04"},
	})

	data, err := inv.Render()
	require.NoError(t, err)

	var doc map[string]map[string]map[string]map[string]map[string]Host
	require.NoError(t, yaml.Unmarshal(data, &doc))
	hosts := doc["all"]["children"][GroupLinuxServers]["hosts"]
	require.Contains(t, hosts, "web-server-01")
	require.Equal(t, "10.0.0.5", hosts["web-server-01"].AnsibleHost)
}

func TestPlaybookFor(t *testing.T) {
	pb, ok := PlaybookFor("DISABLE_SMBv1")
	require.True(t, ok)
	require.Equal(t, "disable-smbv1.yml", pb)

	// Firewall controls share one playbook.
	a, _ := PlaybookFor("BLOCK_RDP_PORT")
	b, _ := PlaybookFor("ENABLE_FIREWALL")
	require.Equal(t, a, b)

	_, ok = PlaybookFor("INVESTIGATE")
	require.False(t, ok)
}
