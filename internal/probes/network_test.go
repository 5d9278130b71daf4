package probe

import (
	"HealthScan/internal/domain"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := NewTCPProbe()

	t.Run("Connects", func(t *testing.T) {
		obs, err := p.Execute(context.Background(), domain.ProbeSpec{Name: "tcp", Kind: domain.TCPConnect, Target: ln.Addr().String()})
		require.NoError(t, err)
		assert.True(t, obs.Value.Numeric)
		assert.GreaterOrEqual(t, obs.Value.Number, 0.0)
		assert.Equal(t, ln.Addr().String(), obs.Details["address"])
	})

	t.Run("PortParam", func(t *testing.T) {
		port := ln.Addr().(*net.TCPAddr).Port
		_, err := p.Execute(context.Background(), domain.ProbeSpec{
			Name: "tcp", Kind: domain.TCPConnect, Target: "127.0.0.1",
			Params: map[string]interface{}{"port": strconv.Itoa(port)},
		})
		assert.NoError(t, err)
	})

	t.Run("Refused", func(t *testing.T) {
		closed, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := closed.Addr().String()
		closed.Close()

		_, err = p.Execute(context.Background(), domain.ProbeSpec{Name: "tcp", Kind: domain.TCPConnect, Target: addr})
		assert.Error(t, err)
	})

	t.Run("NoPort", func(t *testing.T) {
		_, err := p.Execute(context.Background(), domain.ProbeSpec{Name: "tcp", Kind: domain.TCPConnect, Target: "localhost"})
		assert.ErrorContains(t, err, "port")
	})
}

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "yes", r.Header.Get("X-Probe"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPProbe()
	headers := map[string]interface{}{"X-Probe": "yes"}

	t.Run("OK", func(t *testing.T) {
		obs, err := p.Execute(context.Background(), domain.ProbeSpec{
			Name: "web", Kind: domain.HTTPCheck, Target: srv.URL + "/health",
			Params: map[string]interface{}{"headers": headers},
		})
		require.NoError(t, err)
		assert.True(t, obs.Value.Numeric)
		assert.Equal(t, "200", obs.Details["status_code"])
	})

	t.Run("UnexpectedStatus", func(t *testing.T) {
		_, err := p.Execute(context.Background(), domain.ProbeSpec{Name: "web", Kind: domain.HTTPCheck, Target: srv.URL + "/down"})
		assert.ErrorContains(t, err, "503")
	})

	t.Run("ExpectedStatus", func(t *testing.T) {
		_, err := p.Execute(context.Background(), domain.ProbeSpec{
			Name: "web", Kind: domain.HTTPCheck, Target: srv.URL + "/down",
			Params: map[string]interface{}{"expect_status": []interface{}{503}},
		})
		assert.NoError(t, err)
	})

	t.Run("SchemeAdded", func(t *testing.T) {
		host := srv.Listener.Addr().String()
		obs, err := p.Execute(context.Background(), domain.ProbeSpec{
			Name: "web", Kind: domain.HTTPCheck, Target: host + "/health",
			Params: map[string]interface{}{"headers": headers},
		})
		require.NoError(t, err)
		assert.Equal(t, "http://"+host+"/health", obs.Details["url"])
	})
}

// startDNSServer answers A queries for up.test, an empty answer for
// empty.test and NXDOMAIN for every other name.
func startDNSServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)

		q := r.Question[0]
		switch q.Name {
		case "up.test.":
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
				A:   net.ParseIP("10.0.0.1"),
			})
		case "empty.test.":
		default:
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	server := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = server.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = server.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSProbe(t *testing.T) {
	addr := startDNSServer(t)
	p := NewDNSProbe()

	spec := func(name string, params map[string]interface{}) domain.ProbeSpec {
		if params == nil {
			params = map[string]interface{}{}
		}
		params["server"] = addr
		return domain.ProbeSpec{Name: "dns", Kind: domain.DNSLookup, Target: name, Params: params}
	}

	t.Run("Answer", func(t *testing.T) {
		obs, err := p.Execute(context.Background(), spec("up.test", nil))
		require.NoError(t, err)
		assert.True(t, obs.Value.Numeric)
		assert.GreaterOrEqual(t, obs.Value.Number, 0.0)
		assert.Equal(t, "1", obs.Details["answer_count"])
		assert.Equal(t, "60", obs.Details["ttl"])
		assert.Equal(t, "A", obs.Details["record_type"])
	})

	t.Run("NXDOMAIN", func(t *testing.T) {
		_, err := p.Execute(context.Background(), spec("missing.test", nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NXDOMAIN")
	})

	t.Run("EmptyAnswer", func(t *testing.T) {
		_, err := p.Execute(context.Background(), spec("empty.test", nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no A records")
	})

	t.Run("EmptyAnswerAllowed", func(t *testing.T) {
		obs, err := p.Execute(context.Background(), spec("empty.test", map[string]interface{}{"allow_empty": true}))
		require.NoError(t, err)
		assert.Equal(t, "0", obs.Details["answer_count"])
	})

	t.Run("EmptyTarget", func(t *testing.T) {
		_, err := p.Execute(context.Background(), spec("", nil))
		assert.Error(t, err)
	})
}
