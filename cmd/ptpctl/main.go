// Command ptpctl opens a PTP/MTP camera over USB and runs one of a small
// set of diagnostic operations against it: device info, a property
// get/set, or a single capture. Grounded on the teacher's main.go (flag
// parsing, device detection, log.Fatal on setup failure) generalized
// from the teacher's single hard-coded FUSE-mount flow to a small verb
// dispatch over the generic Camera façade.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/gousb"

	"github.com/hanwen/go-ptp/internal/ptplog"
	"github.com/hanwen/go-ptp/ptp"
	"github.com/hanwen/go-ptp/ptp/canon"
	"github.com/hanwen/go-ptp/ptp/nikon"
	"github.com/hanwen/go-ptp/ptp/sony"
	"github.com/hanwen/go-ptp/usbtransport"
)

func main() {
	vendor := flag.String("vendor", "generic", "vendor registry to use: generic, nikon, canon, sony")
	debug := flag.Bool("debug", false, "enable verbose USB/protocol logging")
	vendorID := flag.Uint("vid", 0, "USB vendor ID (0 to auto-detect the first PTP-class interface)")
	productID := flag.Uint("pid", 0, "USB product ID")
	timeout := flag.Duration("timeout", 5*time.Second, "bulk-IN read timeout")
	showRate := flag.Bool("rate", false, "print bulk transfer throughput to stderr while capture/get run")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: ptpctl [flags] <info|get NAME|set NAME VALUE|capture>")
	}

	ptplog.SetDebug(*debug)

	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	dev, err := findDevice(usbCtx, uint16(*vendorID), uint16(*productID))
	if err != nil {
		log.Fatalf("ptpctl: %v", err)
	}
	// transport.Disconnect (via cam.Disconnect below) closes dev; no
	// separate defer dev.Close() here.

	transport, err := usbtransport.Open(usbCtx, dev, 1, 0, 0, usbtransport.WithLogger(ptplog.New("usb")))
	if err != nil {
		log.Fatalf("ptpctl: opening transport: %v", err)
	}

	registry, strategy := vendorRegistry(*vendor)

	cam := ptp.NewCamera(transport, registry, strategy, ptplog.New("camera"))
	cam.Engine.SetReadTimeout(*timeout)
	if attach, ok := strategy.(*canon.Strategy); ok {
		attach.AttachCamera(cam)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cam.Connect(ctx, 1); err != nil {
		log.Fatalf("ptpctl: connect: %v", err)
	}
	defer cam.Disconnect(ctx)

	if *showRate {
		stop := reportTransferRate(ctx, cam)
		defer stop()
	}

	if err := run(ctx, cam, *vendor, flag.Args()); err != nil {
		log.Fatalf("ptpctl: %v", err)
	}
}

// reportTransferRate prints cam's bulk throughput to stderr once a
// second until the returned stop function runs, for the -rate flag.
func reportTransferRate(ctx context.Context, cam *ptp.Camera) func() {
	ticker := time.NewTicker(time.Second)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fmt.Fprintf(os.Stderr, "ptpctl: %d B/s\n", cam.TransferRate())
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() { close(done) }
}

func vendorRegistry(name string) (*ptp.Registry, ptp.VendorStrategy) {
	switch name {
	case "nikon":
		return nikon.NewRegistry(), nikon.NewStrategy()
	case "canon":
		return canon.NewRegistry(), canon.NewStrategy(nil)
	case "sony":
		return sony.NewRegistry(), sony.NewStrategy()
	default:
		return ptp.NewGenericRegistry(), nil
	}
}

func findDevice(usbCtx *gousb.Context, vid, pid uint16) (*gousb.Device, error) {
	if vid != 0 && pid != 0 {
		dev, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
		if err != nil {
			return nil, fmt.Errorf("open %04x:%04x: %w", vid, pid, err)
		}
		if dev == nil {
			return nil, fmt.Errorf("no device matching %04x:%04x", vid, pid)
		}
		return dev, nil
	}

	var found *gousb.Device
	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, cfg := range desc.Configs {
			for _, iface := range cfg.Interfaces {
				for _, alt := range iface.AltSettings {
					if alt.Class == gousb.ClassPTP {
						return true
					}
				}
			}
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	for i, d := range devs {
		if i == 0 {
			found = d
		} else {
			d.Close()
		}
	}
	if found == nil {
		return nil, fmt.Errorf("no PTP-class USB device found, try replugging it")
	}
	return found, nil
}

func run(ctx context.Context, cam *ptp.Camera, vendor string, args []string) error {
	switch args[0] {
	case "info":
		res, err := cam.Send(ctx, "GetDeviceInfo", nil, nil)
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", res.Decoded)
		return nil
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: get NAME")
		}
		v, err := cam.Get(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: set NAME VALUE")
		}
		n, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("value must be a non-negative integer: %w", err)
		}
		return cam.Set(ctx, args[1], uint32(n))
	case "capture":
		return capture(ctx, cam, vendor)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func capture(ctx context.Context, cam *ptp.Camera, vendor string) error {
	switch vendor {
	case "nikon":
		frame, err := nikon.CaptureLiveViewFrame(ctx, cam)
		if err != nil {
			return err
		}
		return writeJPEG(frame.JPEG)
	case "sony":
		img, err := sony.CaptureOSDImage(ctx, cam)
		if err != nil {
			return err
		}
		return writeJPEG(img.JPEG)
	default:
		_, err := cam.Send(ctx, "InitiateCapture", map[string]interface{}{"storage_id": uint32(0), "format_code": uint32(0)}, nil)
		return err
	}
}

func writeJPEG(jpeg []byte) error {
	_, err := os.Stdout.Write(jpeg)
	return err
}
