package ptp

import (
	"context"
	"testing"
)

// newScriptedTransport returns an empty pumpFakeTransport (from
// eventpump_test.go); each test loads the DATA/RESPONSE frames it needs
// into recv, and the event pump Connect starts blocks in ReceiveEvent
// until Disconnect cancels it.
func newScriptedTransport() *pumpFakeTransport {
	return &pumpFakeTransport{}
}

func newTestCamera(ft *pumpFakeTransport) *Camera {
	r := NewGenericRegistry()
	return NewCamera(ft, r, nil, NullLogger())
}

func TestCameraConnectDisconnectLifecycle(t *testing.T) {
	ft := newScriptedTransport()
	cam := newTestCamera(ft)

	// OpenSession: DirNone, transaction ID is pinned to 0.
	ft.recv = [][]byte{mustEncodeResponse(RespOK, 0, nil)}

	if err := cam.Connect(context.Background(), 1); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// CloseSession: DirNone, first real transaction ID is 1.
	ft.mu.Lock()
	ft.recv = [][]byte{mustEncodeResponse(RespOK, 1, nil)}
	ft.mu.Unlock()

	if err := cam.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
}

func TestCameraGetDecodesPropertyValue(t *testing.T) {
	ft := newScriptedTransport()
	cam := newTestCamera(ft)

	ft.recv = [][]byte{mustEncodeResponse(RespOK, 0, nil)}
	if err := cam.Connect(context.Background(), 1); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ft.mu.Lock()
	ft.recv = [][]byte{
		EncodeData(OpGetDevicePropValue, 1, []byte{0x55}),
		mustEncodeResponse(RespOK, 1, nil),
	}
	ft.mu.Unlock()

	v, err := cam.Get(context.Background(), "BatteryLevel")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.(uint8) != 0x55 {
		t.Fatalf("Get(BatteryLevel) = %v, want 0x55", v)
	}
}

func TestCameraGetUnknownProperty(t *testing.T) {
	cam := newTestCamera(newScriptedTransport())
	if _, err := cam.Get(context.Background(), "NoSuchProperty"); err == nil {
		t.Fatal("expected UnknownCodeError for an unregistered property")
	} else if _, ok := err.(*UnknownCodeError); !ok {
		t.Fatalf("expected *UnknownCodeError, got %T: %v", err, err)
	}
}

func TestCameraSetEncodesAndSendsPropertyValue(t *testing.T) {
	ft := newScriptedTransport()
	cam := newTestCamera(ft)

	ft.recv = [][]byte{mustEncodeResponse(RespOK, 0, nil)}
	if err := cam.Connect(context.Background(), 1); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ft.mu.Lock()
	ft.recv = [][]byte{mustEncodeResponse(RespOK, 1, nil)}
	ft.mu.Unlock()

	if err := cam.Set(context.Background(), "FunctionalMode", uint16(2)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ft.mu.Lock()
	sent := ft.sent
	ft.mu.Unlock()
	if len(sent) < 2 {
		t.Fatalf("expected COMMAND+DATA sent for SetDevicePropValue, got %d sends", len(sent))
	}
	data, err := DecodeContainer(sent[len(sent)-1])
	if err != nil {
		t.Fatalf("decoding sent DATA: %v", err)
	}
	if data.Type != ContainerData || len(data.Payload) != 2 {
		t.Fatalf("sent DATA = %+v, want a 2-byte uint16 payload", data)
	}
}

func TestCameraSetRejectsReadOnlyProperty(t *testing.T) {
	cam := newTestCamera(newScriptedTransport())
	err := cam.Set(context.Background(), "BatteryLevel", uint8(1))
	if err == nil {
		t.Fatal("expected an error setting a Get-only property")
	}
	ve, ok := err.(*ValidationError)
	if !ok || ve.Reason != "NotWritable" {
		t.Fatalf("expected ValidationError{Reason: NotWritable}, got %T: %v", err, err)
	}
}

func TestCameraSendRequiresConnection(t *testing.T) {
	cam := newTestCamera(newScriptedTransport())
	if _, err := cam.Send(context.Background(), "GetDeviceInfo", nil, nil); err == nil {
		t.Fatal("expected Send to fail before Connect")
	}
}

func TestCameraOnOffBeforeConnect(t *testing.T) {
	cam := newTestCamera(newScriptedTransport())
	// On/Off must not panic when no event pump has started yet.
	cam.On("ObjectAdded", func(Event) {})
	cam.Off("ObjectAdded")
}
