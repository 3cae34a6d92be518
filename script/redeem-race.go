package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/dto"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/middleware"
	"github.com/golang-jwt/jwt/v4"
)

// RaceResult contains the outcome of a single redemption request
type RaceResult struct {
	Outcome      string
	ResponseTime time.Duration
	Error        error
}

// RaceStats contains aggregated race statistics
type RaceStats struct {
	Outcomes      map[string]int
	ResponseTimes []time.Duration
	TotalTime     time.Duration
	Lock          sync.Mutex
}

func main() {
	// Define command line flags
	baseURL := flag.String("url", "http://localhost:8080", "Base URL for the API")
	payers := flag.Int("n", 50, "Number of concurrent payers")
	maxUses := flag.Int("max-uses", 5, "Cap of the link created for the race")
	secret := flag.String("secret", os.Getenv("PL_AUTH_JWT_SECRET"), "JWT secret used to mint the owner token")
	issuer := flag.String("issuer", "paylink-dev", "JWT issuer expected by the server")
	owner := flag.String("owner", "race-merchant", "Owner id of the created link")
	declineEvery := flag.Int("decline-every", 0, "Use a declining card for every Nth payer (0 disables)")
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	ownerToken, err := middleware.SignOwnerToken(
		middleware.AuthConfig{Secret: []byte(*secret), Issuer: *issuer},
		*owner,
		jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	)
	if err != nil {
		fmt.Printf("Failed to sign owner token: %v\n", err)
		os.Exit(1)
	}

	link, err := createLink(client, *baseURL, ownerToken, *maxUses)
	if err != nil {
		fmt.Printf("Failed to create link: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Racing %d payers against link %s (maxUses=%d)\n", *payers, link.Token, *maxUses)

	stats := &RaceStats{
		Outcomes:      make(map[string]int),
		ResponseTimes: make([]time.Duration, 0, *payers),
	}

	// All payers wait on the same gate so the requests start together
	gate := make(chan struct{})
	results := make(chan RaceResult, *payers)
	var wg sync.WaitGroup
	for i := 0; i < *payers; i++ {
		wg.Add(1)
		go func(payer int) {
			defer wg.Done()
			card := "4242424242424242"
			if *declineEvery > 0 && payer%*declineEvery == 0 {
				card = "4000000000000002"
			}
			<-gate
			results <- redeem(client, *baseURL, link.Token, payer, card)
		}(i)
	}

	startTime := time.Now()
	close(gate)
	wg.Wait()
	close(results)
	stats.TotalTime = time.Since(startTime)

	for result := range results {
		stats.Lock.Lock()
		key := result.Outcome
		if result.Error != nil {
			key = "error: " + result.Error.Error()
		}
		stats.Outcomes[key]++
		stats.ResponseTimes = append(stats.ResponseTimes, result.ResponseTime)
		stats.Lock.Unlock()
	}

	final, err := getLink(client, *baseURL, ownerToken, link.Token)
	if err != nil {
		fmt.Printf("Failed to read link after race: %v\n", err)
		os.Exit(1)
	}

	printResults(stats, final, *maxUses)

	if stats.Outcomes["completed"] > *maxUses || final.CurrentUses != stats.Outcomes["completed"] {
		os.Exit(2)
	}
}

func createLink(client *http.Client, baseURL, ownerToken string, maxUses int) (*dto.LinkResponse, error) {
	body, err := json.Marshal(dto.CreateLinkRequest{
		Amount:      "10.00",
		Currency:    "USD",
		Description: "redemption race",
		MaxUses:     &maxUses,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/links", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ownerToken)

	var link dto.LinkResponse
	if err := doJSON(client, req, http.StatusCreated, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func getLink(client *http.Client, baseURL, ownerToken, token string) (*dto.LinkResponse, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/links/"+token, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+ownerToken)

	var link dto.LinkResponse
	if err := doJSON(client, req, http.StatusOK, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func redeem(client *http.Client, baseURL, token string, payer int, card string) RaceResult {
	body, err := json.Marshal(dto.RedeemRequest{
		Payer: dto.PayerRequest{Email: fmt.Sprintf("payer%d@example.com", payer), Name: fmt.Sprintf("Payer %d", payer)},
		Card:  dto.CardRequest{Number: card, ExpiryMonth: 12, ExpiryYear: time.Now().Year() + 2, CVV: "123"},
	})
	if err != nil {
		return RaceResult{Error: err}
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/pay/"+token, bytes.NewReader(body))
	if err != nil {
		return RaceResult{Error: err}
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := client.Do(req)
	responseTime := time.Since(startTime)
	if err != nil {
		return RaceResult{ResponseTime: responseTime, Error: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return RaceResult{ResponseTime: responseTime, Outcome: fmt.Sprintf("rejected %d (code %d)", resp.StatusCode, apiErr.Code)}
	}

	var txn dto.RedeemResponse
	if err := json.NewDecoder(resp.Body).Decode(&txn); err != nil {
		return RaceResult{ResponseTime: responseTime, Error: err}
	}
	outcome := txn.Status
	if txn.FailureReason != "" {
		outcome += " (" + txn.FailureReason + ")"
	}
	return RaceResult{ResponseTime: responseTime, Outcome: outcome}
}

func doJSON(client *http.Client, req *http.Request, wantStatus int, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var apiErr dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("HTTP status code %d: %s", resp.StatusCode, apiErr.Message)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printResults(stats *RaceStats, link *dto.LinkResponse, maxUses int) {
	var p50, p99 time.Duration
	if len(stats.ResponseTimes) > 0 {
		sorted := make([]time.Duration, len(stats.ResponseTimes))
		copy(sorted, stats.ResponseTimes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		p50 = sorted[len(sorted)*50/100]
		p99 = sorted[len(sorted)*99/100]
	}

	fmt.Println("\n================= RACE RESULTS =================")
	fmt.Printf("Total Time:          %.2f seconds\n", stats.TotalTime.Seconds())
	fmt.Printf("P50 Response:        %v\n", p50)
	fmt.Printf("P99 Response:        %v\n", p99)

	fmt.Println("\n----------------- OUTCOMES -----------------")
	outcomes := make([]string, 0, len(stats.Outcomes))
	for outcome := range stats.Outcomes {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		fmt.Printf("%-45s: %d\n", outcome, stats.Outcomes[outcome])
	}

	fmt.Println("\n----------------- LINK -----------------")
	fmt.Printf("currentUses:         %d / %d\n", link.CurrentUses, maxUses)
	fmt.Printf("status:              %s\n", link.Status)

	fmt.Println("\n================= CONCLUSION =================")
	completed := stats.Outcomes["completed"]
	if completed <= maxUses && link.CurrentUses == completed {
		fmt.Printf("OK: %d completed redemptions, cap of %d held\n", completed, maxUses)
	} else {
		fmt.Printf("VIOLATION: %d completed redemptions, currentUses %d, cap %d\n", completed, link.CurrentUses, maxUses)
	}
	fmt.Println("================================================")
}
