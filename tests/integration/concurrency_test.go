package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The serializing transactor gives these tests the same one-writer-at-a-time
// ordering the SQL repos get from SELECT FOR UPDATE, so the outcomes below
// are exact, not statistical.

func TestConcurrency_BalanceCoversOnlyOneCharge(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	_, token := registerAndLogin(t, app, "race@example.com")

	// Drain the 50.00 grant down to 6.00: room for exactly one more
	// 4.00 fee, so the second concurrent charge must bounce no matter
	// how the requests interleave.
	for i := 0; i < 11; i++ {
		drainBody, _ := json.Marshal(map[string]interface{}{
			"base_rate":       8.50,
			"tracking_number": fmt.Sprintf("TRK-PRE-%03d", i),
		})
		resp := doAuthed(t, app, token, http.MethodPost, "/api/v1/wallet/labels", drainBody)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	require.Equal(t, "6.00", getBalance(t, app, token))

	purchaseBody, _ := json.Marshal(map[string]interface{}{
		"base_rate":       8.50,
		"tracking_number": "TRK-RACE",
	})

	var created, rejected atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/wallet/labels", bytes.NewReader(purchaseBody))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusPaymentRequired:
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
	assert.Equal(t, int64(1), rejected.Load())
	assert.Equal(t, "2.00", getBalance(t, app, token))
}

func TestConcurrency_WebhookRedeliveryStorm(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accountID, token := registerAndLogin(t, app, "storm@example.com")

	payload := coinbaseDepositEvent("evt_storm_1", accountID, "25.00")
	signature := app.coinbase.Sign(payload)

	// Eight simultaneous deliveries of the same event. Every one is
	// acknowledged, exactly one credits the wallet.
	var acked atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/webhooks/coinbase", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("x-cc-webhook-signature", signature)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				acked.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8), acked.Load())
	assert.Equal(t, "75.00", getBalance(t, app, token))

	// Exactly one ledger entry for the whole storm.
	resp := doAuthed(t, app, token, http.MethodGet, "/api/v1/wallet/transactions?kind=deposit", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResp))
	assert.Equal(t, float64(1), listResp["data"].(map[string]interface{})["total"])
}

func TestConcurrency_ParallelDepositsAllApply(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	accountID, token := registerAndLogin(t, app, "parallel@example.com")

	// Five distinct events, delivered at once: all five credits land.
	events := [][]byte{
		coinbaseDepositEvent("evt_par_1", accountID, "10.00"),
		coinbaseDepositEvent("evt_par_2", accountID, "10.00"),
		coinbaseDepositEvent("evt_par_3", accountID, "10.00"),
		coinbaseDepositEvent("evt_par_4", accountID, "10.00"),
		coinbaseDepositEvent("evt_par_5", accountID, "10.00"),
	}

	var wg sync.WaitGroup
	for _, payload := range events {
		wg.Add(1)
		go func(body []byte) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/webhooks/coinbase", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("x-cc-webhook-signature", app.coinbase.Sign(body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}(payload)
	}
	wg.Wait()

	assert.Equal(t, "100.00", getBalance(t, app, token))
}
