package pihole

// customDNSResponse is the shape of the Pi-hole admin API's custom DNS
// listing: {"data": [["hostname", "ip"], ...]}.
type customDNSResponse struct {
	Data [][]string `json:"data"`
}
