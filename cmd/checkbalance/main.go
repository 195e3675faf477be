// checkbalance prints the custody balance of one or more addresses.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"sealedauctiongo/internal/http/platformhandler"
)

func main() {
	baseURL := flag.String("url", "http://localhost:3001", "Platform API base URL")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: checkbalance [-url http://host:port] ADDRESS [ADDRESS…]")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	for _, addr := range flag.Args() {
		resp, err := client.Get(*baseURL + "/funds/" + addr)
		if err != nil {
			log.Fatalf("query %s: %v", addr, err)
		}
		var bal platformhandler.BalanceResponse
		err = json.NewDecoder(resp.Body).Decode(&bal)
		resp.Body.Close()
		if err != nil {
			log.Fatalf("decode %s: %v", addr, err)
		}
		fmt.Printf("%s  %s wei\n", bal.Address, bal.Balance)
	}
}
