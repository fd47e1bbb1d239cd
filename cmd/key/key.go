// Command key generates account keypairs and inspects seeds.
package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stellar/go/keypair"

	"github.com/interstellar/slingshot/depositpool/contract"
	"github.com/interstellar/slingshot/depositpool/keys"
)

func main() {
	var (
		seed  = flag.String("seed", "", "print the address of this seed instead of generating a keypair")
		appID = flag.Uint64("app", 0, "print the address of this application instead")
	)
	flag.Parse()

	if *appID != 0 {
		fmt.Println(contract.AppAddress(*appID))
		return
	}
	if *seed != "" {
		kp, err := keypair.Parse(*seed)
		if err != nil {
			logrus.Fatal(err)
		}
		fmt.Println(kp.Address())
		return
	}

	kp, err := keys.New()
	if err != nil {
		logrus.Fatal(err)
	}
	fmt.Printf("seed: %s\naddress: %s\n", kp.Seed(), kp.Address())
}
