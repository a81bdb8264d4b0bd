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

// Program pay2order-render renders a single payment code image to a
// file (or stdout), useful for debugging and for pre-generating
// images in batch jobs.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/renameio"

	"github.com/manit/pay2order"
	"github.com/manit/pay2order/internal/payimage"
)

var (
	target    = flag.String("target", "PP", "payment rail tag of the receiving company")
	paymentID = flag.String("payment_id", "", "payment id to encode")
	branch    = flag.String("branch", "", "branch id to encode")
	user      = flag.String("user", "", "user id to encode")
	amount    = flag.String("amount", "", "amount to encode, e.g. 100.00")
	ts        = flag.Int64("ts", 0, "issue timestamp as a Unix timestamp. Defaults to the current time")

	seed = flag.String("seed", "", "if non-empty, a raw seed string overriding the individual field flags")

	out = flag.String("out", "", "output file. Defaults to stdout")
)

func main() {
	flag.Parse()

	s := *seed
	if s == "" {
		issuedAt := time.Now()
		if *ts != 0 {
			issuedAt = time.Unix(*ts, 0)
		}
		req := &pay2order.CodeRequest{
			Target:    *target,
			PaymentID: *paymentID,
			BranchID:  *branch,
			UserID:    *user,
			Amount:    *amount,
			IssuedAt:  issuedAt,
		}
		s = req.Seed()
	}

	png, err := payimage.Generate(s)
	if err != nil {
		log.Fatal(err)
	}

	if *out == "" {
		if _, err := os.Stdout.Write(png); err != nil {
			log.Fatal(err)
		}
		return
	}

	o, err := renameio.TempFile("", *out)
	if err != nil {
		log.Fatal(err)
	}
	defer o.Cleanup()
	if _, err := o.Write(png); err != nil {
		log.Fatal(err)
	}
	if err := o.CloseAtomicallyReplace(); err != nil {
		log.Fatal(err)
	}
}
