package enforcement

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kestrelsec/aegis/internal/models"
)

// Inventory group names, fixed taxonomy for playbook targeting.
const (
	GroupWindowsServers = "windows_servers"
	GroupLinuxServers   = "linux_servers"
	GroupWorkstations   = "workstations"
)

// Host carries per-host connection parameters for the automation runner.
type Host struct {
	AnsibleHost string `yaml:"ansible_host"`
	AnsibleUser string `yaml:"ansible_user"`
}

type hostGroup struct {
	Hosts map[string]Host `yaml:"hosts"`
}

// Inventory groups target endpoints by the fixed taxonomy.
type Inventory struct {
	groups map[string]hostGroup
}

// BuildInventory sorts endpoints into server/workstation groups using
// hostname and OS-type heuristics and attaches default login parameters per
// OS family.
func BuildInventory(endpoints []models.Endpoint) Inventory {
	inv := Inventory{groups: map[string]hostGroup{
		GroupWindowsServers: {Hosts: map[string]Host{}},
		GroupLinuxServers:   {Hosts: map[string]Host{}},
		GroupWorkstations:   {Hosts: map[string]Host{}},
	}}

	for _, ep := range endpoints {
		host := Host{
			AnsibleHost: ep.Address(),
			AnsibleUser: "ubuntu",
		}
		if ep.IsWindows() {
			host.AnsibleUser = "administrator"
		}

		group := GroupWorkstations
		if isServer(ep.Hostname) {
			if ep.IsWindows() {
				group = GroupWindowsServers
			} else {
				group = GroupLinuxServers
			}
		}
		inv.groups[group].Hosts[ep.Hostname] = host
	}

	return inv
}

func isServer(hostname string) bool {
	return strings.Contains(strings.ToLower(hostname), "server")
}

// Groups returns the taxonomy group names, used as target_hosts in playbook
// variables.
func (inv Inventory) Groups() []string {
	return []string{GroupWindowsServers, GroupLinuxServers, GroupWorkstations}
}

// Hosts returns the hosts of one group.
func (inv Inventory) Hosts(group string) map[string]Host {
	return inv.groups[group].Hosts
}

// Size returns the total host count across groups.
func (inv Inventory) Size() int {
	n := 0
	for _, g := range inv.groups {
		n += len(g.Hosts)
	}
	return n
}

// Render serializes the inventory in Ansible YAML layout.
func (inv Inventory) Render() ([]byte, error) {
	doc := map[string]interface{}{
		"all": map[string]interface{}{
			"children": inv.groups,
		},
	}
	return yaml.Marshal(doc)
}
