// Package wire implements the binary framing shared by C1-C5: the six-byte
// control header, the two VT headers, and the msg_type table. SES never
// interprets VT payloads — it only ever touches the two VT header structs
// here, never the control message bodies carried inside them.
package wire

// MaxPayloadLen bounds any single control or VT payload. The codec must
// reject payload_len above this cap before allocating a read buffer.
const MaxPayloadLen = 4 * 1024 * 1024

// ControlHeaderLen is the six-byte header shared by every control message
// on C1, C4, and C5: msg_type (u16 LE) followed by payload_len (u32 LE).
const ControlHeaderLen = 6

// MuxVTHeaderLen is the C2 VT header: pane_id (u16), frame_type (u8), len (u32).
const MuxVTHeaderLen = 7

// PodVTHeaderLen is the C3 VT header: frame_type (u8), len (u32). The fd
// identifies the pane, so no pane_id travels on C3.
const PodVTHeaderLen = 5

// Frame types shared by the C2 and C3 VT headers.
const (
	FrameOutput     uint8 = 0x01 // POD -> SES -> MUX
	FrameInput      uint8 = 0x02 // MUX -> SES -> POD
	FrameResize     uint8 = 0x03 // payload: cols:u16, rows:u16
	FrameBacklogEnd uint8 = 0x04 // len == 0
)

// MsgType is the 16-bit little-endian discriminator of a control message.
// Its high byte names the channel: 0x01xx is C1, 0x04xx is C4, 0x05xx is C5.
type MsgType uint16

// C1: MUX <-> SES control.
const (
	MsgRegister           MsgType = 0x0100
	MsgRegistered         MsgType = 0x0101
	MsgCreatePane         MsgType = 0x0102
	MsgPaneCreated        MsgType = 0x0103
	MsgDestroyPane        MsgType = 0x0104
	MsgDetach             MsgType = 0x0105
	MsgReattach           MsgType = 0x0106
	MsgSessionState       MsgType = 0x0107
	MsgLayoutSync         MsgType = 0x0108
	MsgNotify             MsgType = 0x0109
	MsgPopConfirm         MsgType = 0x010A
	MsgPopChoose          MsgType = 0x010B
	MsgPopResponse        MsgType = 0x010C
	MsgDisconnect         MsgType = 0x010D
	MsgSyncState          MsgType = 0x010E
	MsgOrphanPane         MsgType = 0x010F
	MsgListOrphaned       MsgType = 0x0110
	MsgAdoptPane          MsgType = 0x0111
	MsgKillPane           MsgType = 0x0112
	MsgSetSticky          MsgType = 0x0113
	MsgFindSticky         MsgType = 0x0114
	MsgPaneInfo           MsgType = 0x0115
	MsgUpdatePaneAux      MsgType = 0x0116
	MsgUpdatePaneName     MsgType = 0x0117
	MsgUpdatePaneShell    MsgType = 0x0118
	MsgGetPaneCwd         MsgType = 0x0119
	MsgListSessions       MsgType = 0x011A
	MsgPing               MsgType = 0x011B
	MsgPong               MsgType = 0x011C
	MsgOk                 MsgType = 0x011D
	MsgError              MsgType = 0x011E
	MsgPaneFound          MsgType = 0x011F
	MsgPaneNotFound       MsgType = 0x0120
	MsgOrphanedPanes      MsgType = 0x0121
	MsgSessionsList       MsgType = 0x0122
	MsgSessionReattached  MsgType = 0x0123
	MsgSessionDetached    MsgType = 0x0124
	MsgSendKeys           MsgType = 0x0125
	MsgBroadcastNotify    MsgType = 0x0126
	MsgTargetedNotify     MsgType = 0x0127
	MsgStatus             MsgType = 0x0128
	MsgFocusMove          MsgType = 0x0129
	MsgExitIntent         MsgType = 0x012A
	MsgExitIntentResult   MsgType = 0x012B
	MsgFloatRequest       MsgType = 0x012C
	MsgFloatCreated       MsgType = 0x012D
	MsgFloatResult        MsgType = 0x012E
	MsgPaneExited         MsgType = 0x012F
)

// C4: POD -> SES control (metadata uplink).
const (
	MsgCwdChanged   MsgType = 0x0400
	MsgFgChanged    MsgType = 0x0401
	MsgShellEvent   MsgType = 0x0402
	MsgTitleChanged MsgType = 0x0403
	MsgBell         MsgType = 0x0404
	MsgExited       MsgType = 0x0405
	MsgQueryState   MsgType = 0x0406
	MsgPodRegister  MsgType = 0x0407
)

// C5: SHP -> POD control.
const (
	MsgShpShellEvent MsgType = 0x0500
	MsgShpPromptReq  MsgType = 0x0501
	MsgShpPromptResp MsgType = 0x0502
)

// Channel classifies a msg_type by its high byte.
type Channel uint8

const (
	ChannelC1 Channel = iota
	ChannelC4
	ChannelC5
	ChannelUnknown
)

// ChannelOf returns which channel a msg_type belongs to, by its high byte.
func ChannelOf(t MsgType) Channel {
	switch t & 0xFF00 {
	case 0x0100:
		return ChannelC1
	case 0x0400:
		return ChannelC4
	case 0x0500:
		return ChannelC5
	default:
		return ChannelUnknown
	}
}

// Disconnect modes carried in a Disconnect payload's Mode field.
const (
	DisconnectDetach   uint8 = 0
	DisconnectShutdown uint8 = 1
)

// Handshake first bytes. SES and POD each read exactly one before anything else.
const (
	HandshakeMuxControl uint8 = 0x01 // MUX -> SES, C1
	HandshakeMuxVT      uint8 = 0x02 // MUX -> SES, C2
	HandshakePodControl uint8 = 0x03 // POD -> SES, C4
	HandshakeCLI        uint8 = 0x04 // one-shot CLI tool, on SES's listener

	HandshakePodVT      uint8 = 0x01 // SES -> POD, C3
	HandshakeShpControl uint8 = 0x02 // SHP -> POD, C5
	HandshakeAuxInput   uint8 = 0x03 // one-shot input injector -> POD
)
