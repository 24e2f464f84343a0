package unifi

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// staticDNSEntry is a controller-native static DNS record as served by
// /proxy/network/v2/api/site/{site}/static-dns.
type staticDNSEntry struct {
	ID         string `json:"_id,omitempty"`
	Key        string `json:"key"`
	RecordType string `json:"record_type"`
	Value      string `json:"value"`
	Enabled    bool   `json:"enabled"`
	TTL        int    `json:"ttl,omitempty"`
}

// deviceEntry is a device-derived hostname from the static-dns/devices
// listing. Only the hostname matters for presence checks.
type deviceEntry struct {
	Hostname string `json:"hostname"`
}
