// demoseed populates a running platform instance with demonstration
// auctions and bids through the HTTP API, then writes a short report.
// The sealed key must match the server's (SEALED_KEY_HEX), otherwise the
// seeded reserve prices cannot be compared at settlement.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"sealedauctiongo/internal/config"
	"sealedauctiongo/internal/http/platformhandler"
	"sealedauctiongo/internal/sealed"
	"sealedauctiongo/internal/services/platform"
)

type demoAuction struct {
	ItemName        string
	ItemDescription string
	StartingPrice   decimal.Decimal
	Reserve         decimal.Decimal
	Duration        int64
}

var demoAuctions = []demoAuction{
	{"限量版艺术品NFT", "知名艺术家创作的限量版数字艺术品，全球仅发行100份", decimal.New(1, 17), decimal.New(15, 16), 3600},
	{"稀有游戏道具", "传奇级游戏装备，属性极佳，收藏价值很高", decimal.New(5, 16), decimal.New(6, 16), 7200},
	{"古董收藏品", "19世纪欧洲古董钟表，保存完好，具有很高的收藏价值", decimal.New(2, 17), decimal.New(25, 16), 5400},
	{"限量版运动鞋", "知名品牌限量版运动鞋，全球限量发售1000双", decimal.New(8, 16), decimal.New(9, 16), 2700},
	{"数字音乐专辑", "独立音乐人发行的数字专辑NFT，包含独家内容", decimal.New(3, 16), decimal.New(35, 15), 1800},
}

type demoBid struct {
	AuctionID uint64
	Amount    decimal.Decimal
}

var demoBids = []demoBid{
	{0, decimal.New(12, 16)},
	{0, decimal.New(15, 16)},
	{1, decimal.New(6, 16)},
	{2, decimal.New(25, 16)},
	{3, decimal.New(9, 16)},
}

var demoBidders = []string{
	"0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc",
	"0x90f79bf6eb2c4f870365e785982e1f101e93b906",
	"0x15d34aaf54267db7d7c367839aaf71a00a2c6a65",
}

func main() {
	baseURL := flag.String("url", "http://localhost:3001", "Platform API base URL")
	seller := flag.String("seller", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8", "Seller address for the demo auctions")
	report := flag.String("report", "demo-report.json", "Report output path")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.SealedKeyHex == "" {
		log.Fatal("SEALED_KEY_HEX must be set so seeded values match the server key")
	}
	km, err := sealed.NewKeyManager(cfg.SealedKeyHex)
	if err != nil {
		log.Fatalf("sealed key: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Println("Seeding demo auctions...")
	for i, a := range demoAuctions {
		handle, proof, err := km.Seal(a.Reserve)
		if err != nil {
			log.Fatalf("seal reserve: %v", err)
		}
		body := platformhandler.CreateAuctionBody{
			Seller:          *seller,
			ItemName:        a.ItemName,
			ItemDescription: a.ItemDescription,
			SealedReserve:   base64.StdEncoding.EncodeToString(handle),
			ReserveProof:    string(proof),
			StartingPrice:   a.StartingPrice.String(),
			Duration:        a.Duration,
		}
		var created platformhandler.CreatedResponse
		if err := post(client, *baseURL+"/auctions", body, &created); err != nil {
			log.Printf("auction %d failed: %v", i+1, err)
			continue
		}
		fmt.Printf("auction %d created (id=%d): %s\n", i+1, created.ID, a.ItemName)
	}

	fmt.Println("Seeding demo bids...")
	for i, b := range demoBids {
		bidder := demoBidders[i%len(demoBidders)]
		handle, proof, err := km.Seal(b.Amount)
		if err != nil {
			log.Fatalf("seal bid: %v", err)
		}
		body := platformhandler.PlaceBidBody{
			Bidder:       bidder,
			SealedAmount: base64.StdEncoding.EncodeToString(handle),
			AmountProof:  string(proof),
			Escrow:       b.Amount.String(),
		}
		url := fmt.Sprintf("%s/auctions/%d/bid", *baseURL, b.AuctionID)
		if err := post(client, url, body, nil); err != nil {
			log.Printf("bid on auction %d failed: %v", b.AuctionID, err)
			continue
		}
		fmt.Printf("bid placed on auction %d by %s\n", b.AuctionID, bidder[:10])
	}

	if err := writeReport(client, *baseURL, *report); err != nil {
		log.Printf("report: %v", err)
	} else {
		fmt.Printf("report written to %s\n", *report)
	}
}

func post(client *http.Client, url string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var apiErr platformhandler.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func writeReport(client *http.Client, baseURL, path string) error {
	resp, err := client.Get(baseURL + "/auctions?limit=100")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var auctions []platform.AuctionDTO
	if err := json.NewDecoder(resp.Body).Decode(&auctions); err != nil {
		return err
	}

	totalBids := uint32(0)
	for _, a := range auctions {
		totalBids += a.BidCount
	}
	report := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"auctions":  auctions,
		"summary": map[string]any{
			"totalAuctions": len(auctions),
			"totalBids":     totalBids,
		},
	}
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
