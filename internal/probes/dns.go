package probe

import (
	"HealthScan/internal/domain"
	"HealthScan/internal/shared/constants"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

type DNSProbe struct {
	timeout time.Duration
}

func NewDNSProbe() *DNSProbe {
	return &DNSProbe{
		timeout: constants.DNSTimeout,
	}
}

func (p *DNSProbe) Kind() domain.Kind {
	return domain.DNSLookup
}

// Execute resolves the target and reports the round-trip time in milliseconds.
func (p *DNSProbe) Execute(ctx context.Context, spec domain.ProbeSpec) (Observation, error) {
	if spec.Target == "" {
		return Observation{}, fmt.Errorf("domain name is empty")
	}

	recordType := strings.ToUpper(getStringOption(spec.Params, "record_type", "A"))
	server := getStringOption(spec.Params, "server", "8.8.8.8:53")
	timeout := getDurationOption(spec.Params, "query_timeout", p.timeout)
	allowEmpty := getBoolOption(spec.Params, "allow_empty", false)

	client := &dns.Client{
		Timeout: timeout,
	}

	msg := dns.Msg{}
	msg.SetQuestion(dns.Fqdn(spec.Target), recordTypeToDNSType(recordType))

	response, rtt, err := client.ExchangeContext(ctx, &msg, server)
	if err != nil {
		return Observation{}, fmt.Errorf("DNS query failed: %w", err)
	}

	if response.Rcode != dns.RcodeSuccess {
		return Observation{}, fmt.Errorf("DNS error: %s", dns.RcodeToString[response.Rcode])
	}

	if len(response.Answer) == 0 && !allowEmpty {
		return Observation{}, fmt.Errorf("no %s records for %s", recordType, spec.Target)
	}

	details := map[string]string{
		"server":       server,
		"record_type":  recordType,
		"answer_count": strconv.Itoa(len(response.Answer)),
	}
	if ttl := extractMinTTL(response.Answer); ttl > 0 {
		details["ttl"] = strconv.FormatUint(uint64(ttl), 10)
	}

	return observe(domain.NumberValue(float64(rtt.Microseconds())/1000), details), nil
}

func recordTypeToDNSType(recordType string) uint16 {
	switch recordType {
	case "A":
		return dns.TypeA
	case "AAAA":
		return dns.TypeAAAA
	case "MX":
		return dns.TypeMX
	case "NS":
		return dns.TypeNS
	case "TXT":
		return dns.TypeTXT
	case "CNAME":
		return dns.TypeCNAME
	case "SOA":
		return dns.TypeSOA
	case "PTR":
		return dns.TypePTR
	case "SRV":
		return dns.TypeSRV
	default:
		return dns.TypeA
	}
}

func extractMinTTL(answers []dns.RR) uint32 {
	if len(answers) == 0 {
		return 0
	}

	minTTL := answers[0].Header().Ttl
	for _, answer := range answers[1:] {
		if answer.Header().Ttl < minTTL {
			minTTL = answer.Header().Ttl
		}
	}
	return minTTL
}
