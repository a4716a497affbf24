// cmd/renogy-bridge/scan.go
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/tamzrod/renogy-bridge/internal/ble"
	"github.com/tamzrod/renogy-bridge/internal/link"
)

// runScan lists nearby modules on stdout.
func runScan(ctx context.Context, tr link.Transport, all bool) error {
	rule := strings.Repeat("=", 60)
	fmt.Println()
	fmt.Println(rule)
	if all {
		fmt.Println("Scanning for all BLE devices...")
	} else {
		fmt.Println("Scanning for Renogy BLE devices...")
	}
	fmt.Println("Make sure your devices are powered on and in range.")
	fmt.Println(rule)

	found, err := ble.Discover(ctx, tr, ble.ScanTimeout, all)
	if err != nil {
		return err
	}

	if len(found) == 0 {
		fmt.Println("\nNo devices found.")
		fmt.Println("\nTips:")
		fmt.Println("  - Make sure devices are powered on")
		fmt.Println("  - Check that the BT-1/BT-2 module is connected and its LED is lit")
		fmt.Println("  - Move closer to the devices")
		fmt.Println("  - Bluetooth access may need root or the CAP_NET_ADMIN capability")
		fmt.Println("  - Try: renogy-bridge -scan-all   (to see every BLE device)")
		return nil
	}

	fmt.Printf("\nFound %d device(s):\n\n", len(found))
	fmt.Println(strings.Repeat("-", 60))
	for i, p := range found {
		fmt.Printf("%d. Name: %s\n", i+1, p.Name)
		fmt.Printf("   MAC Address: %s\n", p.Address)
		if p.RSSI != 0 {
			fmt.Printf("   Signal Strength: %d dBm\n", p.RSSI)
		}
		fmt.Println()
	}
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println("\nAdd the Renogy devices (BT-TH-xxx) to your config.yaml file.")
	return nil
}
