package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// dialTimeout bounds the initial socket connect.
const dialTimeout = 2 * time.Second

// Client is the CLI side of the daemon control socket. Methods mirror the
// RPC surface one to one and block until the daemon replies.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the daemon control socket. Connection errors come back
// unwrapped so callers can inspect them for ENOENT and ECONNREFUSED.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:   conn,
		client: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn)),
	}, nil
}

// Close tears down the RPC client and the socket connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// call invokes an RPC method on the daemon and decodes the reply into a
// fresh T.
func call[T any](c *Client, method string, req any) (*T, error) {
	var resp T
	if err := c.client.Call(rpcName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to start serving sessions.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Import ingests a directory of DICOM files into the archive.
func (c *Client) Import(path string) (*ImportResponse, error) {
	return call[ImportResponse](c, "Import", ImportRequest{Path: path})
}

// Studies lists archived studies.
func (c *Client) Studies() (*StudiesResponse, error) {
	return call[StudiesResponse](c, "Studies", StudiesRequest{})
}

// Series lists series belonging to a study.
func (c *Client) Series(studyUID string) (*SeriesResponse, error) {
	return call[SeriesResponse](c, "Series", SeriesRequest{StudyUID: studyUID})
}

// Instances lists instances belonging to a series in display order.
func (c *Client) Instances(seriesUID string) (*InstancesResponse, error) {
	return call[InstancesResponse](c, "Instances", InstancesRequest{SeriesUID: seriesUID})
}

// SessionCreate opens a viewer session.
func (c *Client) SessionCreate(layout int) (*SessionResponse, error) {
	return call[SessionResponse](c, "SessionCreate", SessionCreateRequest{Layout: layout})
}

// SessionList lists open sessions.
func (c *Client) SessionList() (*SessionListResponse, error) {
	return call[SessionListResponse](c, "SessionList", SessionListRequest{})
}

// SessionGet fetches a session snapshot.
func (c *Client) SessionGet(sessionID string) (*SessionResponse, error) {
	return call[SessionResponse](c, "SessionGet", SessionGetRequest{SessionID: sessionID})
}

// SessionClose tears down a session.
func (c *Client) SessionClose(sessionID string) (*SessionCloseResponse, error) {
	return call[SessionCloseResponse](c, "SessionClose", SessionCloseRequest{SessionID: sessionID})
}

// SetLayout changes a session's pane layout.
func (c *Client) SetLayout(sessionID string, layout int) (*SessionResponse, error) {
	return call[SessionResponse](c, "SetLayout", LayoutRequest{SessionID: sessionID, Layout: layout})
}

// SetActive focuses one viewport.
func (c *Client) SetActive(sessionID string, viewport int) (*SessionResponse, error) {
	return call[SessionResponse](c, "SetActive", ActiveRequest{SessionID: sessionID, Viewport: viewport})
}

// SetSync toggles linked navigation and optionally restricts the member set.
func (c *Client) SetSync(sessionID string, enabled *bool, members []int) (*SessionResponse, error) {
	return call[SessionResponse](c, "SetSync", SyncRequest{SessionID: sessionID, Enabled: enabled, Members: members})
}

// SelectSeries loads a series into a viewport.
func (c *Client) SelectSeries(sessionID string, viewport int, seriesUID string) (*SessionResponse, error) {
	return call[SessionResponse](c, "SelectSeries", SelectSeriesRequest{SessionID: sessionID, Viewport: viewport, SeriesUID: seriesUID})
}

// Navigate steps a viewport's cursor.
func (c *Client) Navigate(sessionID string, viewport, direction int) (*SessionResponse, error) {
	return call[SessionResponse](c, "Navigate", NavigateRequest{SessionID: sessionID, Viewport: viewport, Direction: direction})
}

// Seek moves a viewport's cursor to an absolute index.
func (c *Client) Seek(sessionID string, viewport, index int) (*SessionResponse, error) {
	return call[SessionResponse](c, "Seek", SeekRequest{SessionID: sessionID, Viewport: viewport, Index: index})
}

// CineStart begins autoplay on a viewport.
func (c *Client) CineStart(sessionID string, viewport, fps int) (*SessionResponse, error) {
	return call[SessionResponse](c, "CineStart", CineStartRequest{SessionID: sessionID, Viewport: viewport, FPS: fps})
}

// CineStop halts autoplay.
func (c *Client) CineStop(sessionID string) (*SessionResponse, error) {
	return call[SessionResponse](c, "CineStop", CineStopRequest{SessionID: sessionID})
}

// VolumeBuild assembles a voxel grid from a viewport's stack.
func (c *Client) VolumeBuild(sessionID string, viewport int) (*VolumeResponse, error) {
	return call[VolumeResponse](c, "VolumeBuild", VolumeBuildRequest{SessionID: sessionID, Viewport: viewport})
}

// VolumeStatus fetches the cached volume summary.
func (c *Client) VolumeStatus(sessionID string) (*VolumeResponse, error) {
	return call[VolumeResponse](c, "VolumeStatus", VolumeStatusRequest{SessionID: sessionID})
}

// VolumeDrop discards the cached volume.
func (c *Client) VolumeDrop(sessionID string) (*VolumeDropResponse, error) {
	return call[VolumeDropResponse](c, "VolumeDrop", VolumeDropRequest{SessionID: sessionID})
}

// Slice extracts one reformatted plane from the session volume.
func (c *Client) Slice(sessionID, plane string, index int) (*SliceResponse, error) {
	return call[SliceResponse](c, "Slice", SliceRequest{SessionID: sessionID, Plane: plane, Index: index})
}

// LogTail returns daemon log lines starting at the requested offset.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}
