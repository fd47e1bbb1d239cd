// Command pool drives a deposit pool daemon from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/interstellar/starlight/env"
	"github.com/sirupsen/logrus"
	"github.com/stellar/go/keypair"

	"github.com/interstellar/slingshot/depositpool/client"
	"github.com/interstellar/slingshot/depositpool/contract"
	"github.com/interstellar/slingshot/depositpool/keys"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	ctx := context.Background()
	subcommand := os.Args[1]
	args := os.Args[2:]

	var (
		fs      = flag.NewFlagSet(subcommand, flag.ExitOnError)
		url     = fs.String("url", env.String("DEPOSITPOOL_URL", "http://localhost:2424"), "daemon URL")
		seed    = fs.String("seed", env.String("DEPOSITPOOL_SEED", ""), "seed of the account signing the group")
		amount  = fs.Uint64("amount", 0, "amount to deposit, withdraw or fund")
		address = fs.String("address", "", "account address (account, fund)")
		asset   = fs.Uint64("asset", 0, "asset ID (fund)")
		note    = fs.String("note", "", "note making an otherwise repeated group distinct")
	)
	err := fs.Parse(args)
	if err != nil {
		logrus.Fatal(err)
	}
	c := client.New(*url)

	switch subcommand {
	case "pool":
		info, err := c.Pool(ctx)
		if err != nil {
			logrus.Fatal(err)
		}
		printJSON(info)

	case "account":
		addr := contract.Address(*address)
		if addr == "" {
			addr = keys.Address(mustSeed(*seed))
		}
		info, err := c.Account(ctx, addr)
		if err != nil {
			logrus.Fatal(err)
		}
		printJSON(info)

	case "fund":
		if *address == "" || *asset == 0 || *amount == 0 {
			logrus.Fatal("fund needs -address, -asset and -amount")
		}
		err = c.Fund(ctx, contract.Address(*address), contract.AssetID(*asset), *amount)
		if err != nil {
			logrus.Fatal(err)
		}

	case "create", "optin", "deposit", "withdraw", "clear":
		kp := mustSeed(*seed)
		sender := keys.Address(kp)

		var g contract.Group
		if subcommand == "create" {
			g = contract.CreateGroup(sender)
		} else {
			info, err := c.Pool(ctx)
			if err != nil {
				logrus.Fatal(err)
			}
			switch subcommand {
			case "optin":
				g = contract.OptInGroup(info.AppID, sender)
			case "clear":
				g = contract.ClearGroup(info.AppID, sender)
			case "deposit", "withdraw":
				if *amount == 0 {
					logrus.Fatalf("%s needs -amount", subcommand)
				}
				if subcommand == "deposit" {
					g = contract.DepositGroup(info.Config, info.AppID, sender, *amount)
				} else {
					g = contract.WithdrawGroup(info.Config, info.AppID, sender, *amount)
				}
			}
		}
		if *note != "" {
			g = g.WithNote([]byte(*note))
		}

		sg, err := keys.Sign(g, kp)
		if err != nil {
			logrus.Fatal(err)
		}
		rec, err := c.Submit(ctx, sg)
		if err != nil {
			logrus.Fatal(err)
		}
		logrus.WithFields(logrus.Fields{
			"round": rec.Round,
			"group": fmt.Sprintf("%x", rec.GroupID.Bytes()),
		}).Infof("%s committed", subcommand)
		if subcommand == "create" {
			fmt.Printf("application %d, address %s\n", rec.Round, contract.AppAddress(rec.Round))
		}

	default:
		usage()
	}
}

func mustSeed(seed string) *keypair.Full {
	if seed == "" {
		logrus.Fatal("must specify -seed")
	}
	kp, err := keypair.Parse(seed)
	if err != nil {
		logrus.Fatalf("parsing seed: %s", err)
	}
	full, ok := kp.(*keypair.Full)
	if !ok {
		logrus.Fatal("-seed is an address, not a seed")
	}
	return full
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	err := enc.Encode(v)
	if err != nil {
		logrus.Fatal(err)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage:
	pool SUBCOMMAND ...args...

	Available subcommands are: create, optin, deposit, withdraw, clear,
	pool, account, fund.

	Every subcommand takes -url URL (default $DEPOSITPOOL_URL or
	http://localhost:2424). Subcommands that submit a group sign it with
	-seed SEED (default $DEPOSITPOOL_SEED).

	create			instantiate the application
	optin			opt the signing account in
	deposit -amount N	pay N reserve units for N pool shares
	withdraw -amount N	return N pool shares for N reserve units
	clear			remove the signing account's local state
	pool			print the pool's global state
	account [-address A]	print an account's state
	fund -address A -asset ID -amount N
				credit holdings on a daemon run with -dev

	-note TEXT makes a group that repeats an earlier one distinct.
`)
	os.Exit(1)
}
