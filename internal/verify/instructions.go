package verify

// DNSRecord is a single record the tenant needs to publish at their DNS
// provider. Host values are relative to the domain's zone apex, matching
// how most provider dashboards ask for records.
type DNSRecord struct {
	Type     string `json:"type"`
	Host     string `json:"host"`
	Value    string `json:"value"`
	Purpose  string `json:"purpose"`
	Required bool   `json:"required"`
}

// ChallengeInstruction returns the TXT record required to prove
// ownership of a domain.
func ChallengeInstruction(token string) DNSRecord {
	return DNSRecord{
		Type:     "TXT",
		Host:     RecordPrefix,
		Value:    token,
		Purpose:  "Domain ownership verification",
		Required: true,
	}
}

// RoutingInstructions returns the records that point visitor traffic at
// the platform. Published to the tenant only after the binding is
// verified.
func RoutingInstructions(servingIP, canonicalHost string) []DNSRecord {
	return []DNSRecord{
		{
			Type:     "A",
			Host:     "@",
			Value:    servingIP,
			Purpose:  "Route apex traffic to the platform",
			Required: true,
		},
		{
			Type:     "CNAME",
			Host:     "www",
			Value:    canonicalHost,
			Purpose:  "Route www traffic to the platform",
			Required: true,
		},
	}
}

// Instructions assembles the full DNS record set for a binding. The
// challenge TXT record is always listed so tenants keep it in place;
// routing records are appended once the domain is verified.
func Instructions(token, servingIP, canonicalHost string, verified bool) []DNSRecord {
	records := []DNSRecord{ChallengeInstruction(token)}
	if verified {
		records = append(records, RoutingInstructions(servingIP, canonicalHost)...)
	}
	return records
}
