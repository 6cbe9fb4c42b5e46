package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/deepin-community/fprintd/internal/device"
	"github.com/deepin-community/fprintd/internal/fprint"
	"github.com/deepin-community/fprintd/internal/logger"
)

const (
	ManagerPath      = "/net/reactivated/Fprint/Manager"
	ManagerIface     = "net.reactivated.Fprint.Manager"
	ManagerMockIface = "net.reactivated.Fprint.Manager.Mock"
	DeviceIface      = "net.reactivated.Fprint.Device"
	DeviceMockIface  = "net.reactivated.Fprint.Device.Mock"
)

// CallRequest is the body of POST /api/call: one method invocation on one object.
type CallRequest struct {
	Object    string          `json:"object"`
	Interface string          `json:"interface"`
	Method    string          `json:"method"`
	Args      json.RawMessage `json:"args,omitempty"`
}

type CallReply struct {
	Result any        `json:"result,omitempty"`
	Error  *CallError `json:"error,omitempty"`
}

type CallError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type call struct {
	app  *App
	r    *http.Request
	dev  *device.Device
	args json.RawMessage
}

// decode fills v from the call arguments. Missing arguments leave v zero.
func (c *call) decode(v any) error {
	if len(bytes.TrimSpace(c.args)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(c.args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: bad arguments: %v", fprint.ErrInvalidArgument, err)
	}
	return nil
}

func (c *call) caller() (caller, error) {
	return c.app.callerFrom(c.r)
}

type method func(c *call) (any, error)

// methodTable maps interface name to method name.
type methodTable map[string]map[string]method

func (a *App) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req CallRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeCallError(w, fmt.Errorf("%w: bad request body: %v", fprint.ErrInvalidArgument, err))
		return
	}

	result, err := a.dispatch(r, req)
	if err != nil {
		logger.Debug("%s.%s on %s failed: %v", req.Interface, req.Method, req.Object, err)
		writeCallError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CallReply{Result: result})
}

func (a *App) dispatch(r *http.Request, req CallRequest) (any, error) {
	iface, ok := a.methods[req.Interface]
	if !ok {
		return nil, fmt.Errorf("%w: No such interface '%s'", fprint.ErrUnknownMethod, req.Interface)
	}
	fn, ok := iface[req.Method]
	if !ok {
		return nil, fmt.Errorf("%w: No such method '%s' in interface '%s'", fprint.ErrUnknownMethod, req.Method, req.Interface)
	}

	c := &call{app: a, r: r, args: req.Args}
	switch req.Interface {
	case ManagerIface, ManagerMockIface:
		if req.Object != ManagerPath {
			return nil, fmt.Errorf("%w: No such object '%s'", fprint.ErrUnknownMethod, req.Object)
		}
	default:
		d, err := a.reg.Lookup(req.Object)
		if err != nil {
			return nil, err
		}
		c.dev = d
	}
	return fn(c)
}

func (a *App) buildMethods() methodTable {
	return methodTable{
		ManagerIface: {
			"GetDevices":       a.getDevices,
			"GetDefaultDevice": a.getDefaultDevice,
		},
		ManagerMockIface: {
			"AddDevice":    a.addDevice,
			"RemoveDevice": a.removeDevice,
		},
		DeviceIface: {
			"Claim":                  deviceClaim,
			"Release":                noArgs((*device.Device).Release),
			"EnrollStart":            fingerArg((*device.Device).EnrollStart),
			"EnrollStop":             noArgs((*device.Device).EnrollStop),
			"VerifyStart":            fingerArg((*device.Device).VerifyStart),
			"VerifyStop":             noArgs((*device.Device).VerifyStop),
			"ListEnrolledFingers":    deviceListEnrolled,
			"DeleteEnrolledFingers":  deviceDeleteEnrolled,
			"DeleteEnrolledFingers2": noArgs((*device.Device).DeleteEnrolledFingers2),
			"GetProperties": func(c *call) (any, error) {
				return c.dev.GetProperties()
			},
		},
		DeviceMockIface: {
			"SetEnrolledFingers": mockSetEnrolledFingers,
			"SetClaimed":         mockSetClaimed,
			"SetVerifyScript":    mockSetVerifyScript,
			"HasIdentification": func(c *call) (any, error) {
				return c.dev.HasIdentification()
			},
			"GetSelectedFinger": func(c *call) (any, error) {
				return c.dev.GetSelectedFinger()
			},
			"EmitVerifyStatus": statusArgs((*device.Device).EmitVerifyStatus),
			"EmitEnrollStatus": statusArgs((*device.Device).EmitEnrollStatus),
			"SetFingerStatus":  mockSetFingerStatus,
			"SetScanType":      mockSetScanType,
			"SetNumEnrollStages": func(c *call) (any, error) {
				var args struct {
					Stages int `json:"stages"`
				}
				if err := c.decode(&args); err != nil {
					return nil, err
				}
				return nil, c.dev.SetNumEnrollStages(args.Stages)
			},
			"GetState": func(c *call) (any, error) {
				return c.dev.Snapshot()
			},
		},
	}
}

func (a *App) getDevices(c *call) (any, error) {
	ids, err := a.reg.ListDevices()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, id.Path())
	}
	return paths, nil
}

func (a *App) getDefaultDevice(c *call) (any, error) {
	id, err := a.reg.DefaultDevice()
	if err != nil {
		return nil, err
	}
	return id.Path(), nil
}

func (a *App) addDevice(c *call) (any, error) {
	var spec device.Spec
	if err := c.decode(&spec); err != nil {
		return nil, err
	}
	id, err := a.reg.AddDevice(spec)
	if err != nil {
		return nil, err
	}
	return id.Path(), nil
}

func (a *App) removeDevice(c *call) (any, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := c.decode(&args); err != nil {
		return nil, err
	}
	id, err := device.ParseID(args.Path)
	if err != nil {
		return nil, err
	}
	return nil, a.reg.RemoveDevice(id)
}

func noArgs(fn func(*device.Device) error) method {
	return func(c *call) (any, error) {
		return nil, fn(c.dev)
	}
}

func fingerArg(fn func(*device.Device, string) error) method {
	return func(c *call) (any, error) {
		var args struct {
			Finger string `json:"finger_name"`
		}
		if err := c.decode(&args); err != nil {
			return nil, err
		}
		return nil, fn(c.dev, args.Finger)
	}
}

func statusArgs(fn func(*device.Device, string, bool) error) method {
	return func(c *call) (any, error) {
		var args struct {
			Result string `json:"result"`
			Done   bool   `json:"done"`
		}
		if err := c.decode(&args); err != nil {
			return nil, err
		}
		return nil, fn(c.dev, args.Result, args.Done)
	}
}

type usernameArgs struct {
	Username string `json:"username"`
}

// targetUser decodes the username argument and resolves it against the caller.
func targetUser(c *call) (string, error) {
	var args usernameArgs
	if err := c.decode(&args); err != nil {
		return "", err
	}
	who, err := c.caller()
	if err != nil {
		return "", err
	}
	return who.resolveUser(args.Username)
}

func deviceClaim(c *call) (any, error) {
	user, err := targetUser(c)
	if err != nil {
		return nil, err
	}
	return nil, c.dev.Claim(user)
}

func deviceListEnrolled(c *call) (any, error) {
	user, err := targetUser(c)
	if err != nil {
		return nil, err
	}
	return c.dev.ListEnrolledFingers(user)
}

func deviceDeleteEnrolled(c *call) (any, error) {
	user, err := targetUser(c)
	if err != nil {
		return nil, err
	}
	return nil, c.dev.DeleteEnrolledFingers(user)
}

func mockSetEnrolledFingers(c *call) (any, error) {
	var args struct {
		User    string   `json:"user"`
		Fingers []string `json:"fingers"`
	}
	if err := c.decode(&args); err != nil {
		return nil, err
	}
	if args.User == "" {
		return nil, fmt.Errorf("%w: Invalid empty user", fprint.ErrInvalidArgument)
	}
	return nil, c.dev.SetEnrolledFingers(args.User, args.Fingers)
}

func mockSetClaimed(c *call) (any, error) {
	var args struct {
		User string `json:"user"`
	}
	if err := c.decode(&args); err != nil {
		return nil, err
	}
	return nil, c.dev.SetClaimed(args.User)
}

func mockSetVerifyScript(c *call) (any, error) {
	var args struct {
		Script []device.ScriptEntry `json:"script"`
	}
	if err := c.decode(&args); err != nil {
		return nil, err
	}
	return nil, c.dev.SetVerifyScript(args.Script)
}

func mockSetFingerStatus(c *call) (any, error) {
	var args struct {
		Present bool `json:"present"`
		Needed  bool `json:"needed"`
	}
	if err := c.decode(&args); err != nil {
		return nil, err
	}
	return nil, c.dev.SetFingerStatus(args.Present, args.Needed)
}

func mockSetScanType(c *call) (any, error) {
	var args struct {
		ScanType fprint.ScanType `json:"scan_type"`
	}
	if err := c.decode(&args); err != nil {
		return nil, err
	}
	return nil, c.dev.SetScanType(args.ScanType)
}

// statusFor maps an error kind to the HTTP status of its reply.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fprint.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, fprint.ErrUnknownMethod), errors.Is(err, fprint.ErrNoSuchDevice):
		return http.StatusNotFound
	case errors.Is(err, fprint.ErrAlreadyInUse):
		return http.StatusConflict
	case fprint.ErrorFromName(fprint.ErrorName(err)) == nil:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeCallError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), CallReply{Error: &CallError{Name: fprint.ErrorName(err), Message: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing reply failed: %v", err)
	}
}
