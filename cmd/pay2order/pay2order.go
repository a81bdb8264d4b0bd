// Copyright 2023 the pay2order authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Program pay2order serves payment code images to the point of sale
// terminals of a food ordering deployment, over HTTP and MQTT.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	gorilla_context "github.com/gorilla/context"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/net/trace"
	"golang.org/x/sync/errgroup"

	"github.com/manit/pay2order"
	"github.com/manit/pay2order/internal/branchdir"
	"github.com/manit/pay2order/internal/mayqtt"
	"github.com/manit/pay2order/internal/payapi"
	"github.com/manit/pay2order/internal/payauth"
	"github.com/manit/pay2order/internal/payimage"

	_ "net/http/pprof"
)

// generateFromMQTT serves code requests arriving over MQTT: the
// generated image goes back out on the display topic.
func generateFromMQTT(req *pay2order.CodeRequest, directory *branchdir.Locked) error {
	tr := trace.New("pay2order", "GenerateFromMQTT")
	defer tr.Finish()

	if req.IssuedAt.IsZero() {
		req.IssuedAt = time.Now()
	}
	branch, err := directory.BranchByID(req.BranchID)
	if err != nil {
		return err
	}
	company, err := directory.CompanyByID(branch.CompanyID)
	if err != nil {
		return err
	}
	req.Target = company.Target

	png, err := payimage.Generate(req.Seed())
	if err != nil {
		return err
	}
	tr.LazyPrintf("generated %d bytes for payment %s", len(png), req.PaymentID)
	mayqtt.PublishCode(png)
	mayqtt.Publishf("payment %s: scan to pay %s", req.PaymentID, req.Amount)
	return nil
}

func logic() error {
	stateDir := flag.String("state_dir",
		"/perm/pay2order-state",
		"Directory containing state such as session data and the cookie secret. If wiped, terminals will need to log in again.")

	directoryDir := flag.String("directory_dir",
		"/perm/pay2order-directory",
		"Directory containing branches/<id>.json and companies/<id>.json records. Re-read hourly.")

	apiKeysPath := flag.String("api_keys_path",
		"/perm/pay2order-api-keys.txt",
		"Path to a text file containing one API key per line. Terminals authenticate with one of these keys.")

	httpListenAddr := flag.String("http_listen_address",
		"localhost:7121",
		"[host]:port to listen on for HTTP requests")

	httpsListenAddr := flag.String("https_listen_address",
		":https",
		"[host]:port to listen on for HTTPS requests. This is a no-op unless -tls_autocert_hosts is non-empty.")

	autocertHostList := flag.String("tls_autocert_hosts",
		"",
		"If non-empty, a comma-separated list of hostnames to obtain TLS certificates for. If non-empty, a TLS listener will be enabled on -https_listen_address")

	mqttBroker := flag.String("mqtt_broker",
		"",
		"If non-empty, an MQTT broker URL (e.g. tcp://dr.lan:1883) to receive code requests from and publish generated images to")

	flag.Parse()

	log.Printf("pay2order starting")

	directory := branchdir.NewLocked()
	if err := directory.UpdateFromDir(*directoryDir); err != nil {
		return err
	}
	go func() {
		for {
			time.Sleep(1 * time.Hour)
			if err := directory.UpdateFromDir(*directoryDir); err != nil {
				log.Printf("re-reading %s: %v", *directoryDir, err)
			}
		}
	}()

	mqttCodeRequests := make(chan *pay2order.CodeRequest, 1)
	if *mqttBroker != "" {
		// makes mayqtt.Publishf() work as a side effect:
		mayqtt.MQTT(*mqttBroker, mqttCodeRequests)
	}

	eg, ctx := errgroup.WithContext(context.Background())

	// Impulse/Trigger: MQTT
	go func() {
		for req := range mqttCodeRequests {
			if err := generateFromMQTT(req, directory); err != nil {
				log.Printf("generateFromMQTT: %v", err)
			}
		}
	}()

	store, err := payauth.LoadSessionStore(*stateDir)
	if err != nil {
		return err
	}
	keys, err := payauth.LoadAPIKeys(*apiKeysPath)
	if err != nil {
		return err
	}
	gate := payauth.NewGate(store, keys)

	api := &payapi.API{
		Branches:  directory,
		Companies: directory,
	}
	if *mqttBroker != "" {
		api.Publish = func(req *pay2order.CodeRequest, png []byte) {
			mayqtt.PublishCode(png)
		}
	}

	// Impulse/Trigger: HTTP API
	http.Handle("/api/", payapi.ServeMux(api, gate))

	type serveFunc struct {
		serve    func() error
		shutdown func() error
	}
	var serveFuncs []serveFunc

	if *autocertHostList != "" {
		// Start HTTPS listener with autocert
		var hosts []string
		for _, host := range strings.Split(*autocertHostList, ",") {
			host = strings.TrimSpace(host)
			if host == "" {
				continue
			}
			hosts = append(hosts, host)
		}

		m := &autocert.Manager{
			Cache:      autocert.DirCache(filepath.Join(*stateDir, "autocert")),
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(hosts...),
		}
		s := &http.Server{
			Addr:      *httpsListenAddr,
			Handler:   gorilla_context.ClearHandler(http.DefaultServeMux),
			TLSConfig: m.TLSConfig(),
		}
		for _, host := range hosts {
			log.Printf("listening on https://%s", host)
		}

		ln, err := net.Listen("tcp", s.Addr)
		if err != nil {
			return err
		}
		serveFuncs = append(serveFuncs, serveFunc{
			serve: func() error {
				defer ln.Close()

				return s.ServeTLS(ln, "", "")
			},
			shutdown: func() error {
				timeout, canc := context.WithTimeout(context.Background(), 250*time.Millisecond)
				defer canc()
				return s.Shutdown(timeout)
			},
		})
	}

	// HTTP listener (local network)
	ln, err := net.Listen("tcp", *httpListenAddr)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()
	if host, port, err := net.SplitHostPort(addr); err == nil {
		if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			addr = "localhost"
			if port != "" {
				addr += ":" + port
			}
		}
	} else if strings.HasPrefix(addr, "[::]") {
		host, _ := os.Hostname()
		if host == "" {
			host = "localhost"
		}
		addr = host + strings.TrimPrefix(addr, "[::]")
	}
	log.Printf("listening on http://%s", addr)
	serveFuncs = append(serveFuncs, serveFunc{
		serve: func() error {
			return http.Serve(ln, gorilla_context.ClearHandler(http.DefaultServeMux))
		},
		shutdown: func() error {
			return nil
		},
	})

	// for /debug/requests:
	trace.AuthRequest = func(req *http.Request) (bool, bool) {
		// RemoteAddr is commonly in the form "IP" or "IP:port".
		// If it is in the form "IP:port", split off the port.
		host, _, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			host = req.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil {
			return false, false
		}
		if ip.IsPrivate() {
			return true, true
		}
		return false, false
	}

	for _, sf := range serveFuncs {
		sf := sf // copy
		eg.Go(func() error {
			errC := make(chan error)
			go func() {
				errC <- sf.serve()
			}()
			select {
			case err := <-errC:
				return err
			case <-ctx.Done():
				if err := sf.shutdown(); err != nil {
					log.Printf("shutting down listener: %v", err)
				}
				return ctx.Err()
			}
		})
	}

	return eg.Wait()
}

func main() {
	if err := logic(); err != nil {
		log.Fatal(err)
	}
}
