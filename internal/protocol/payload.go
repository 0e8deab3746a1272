package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf8"

	"wyrm/internal/cmdqueue"
	"wyrm/internal/fixed"
	"wyrm/internal/snake"
)

// Wire qw values are truncated to 32 bits (the full world comfortably fits:
// ±32768 world units at the 1/65536 fixed-point scale), keeping payloads
// inside MaxPayloadSize. Never used for simulation state, only the wire.
func writeQW(buf *bytes.Buffer, v fixed.QW) {
	_ = binary.Write(buf, binary.LittleEndian, int32(v))
}

func readQW(r *bytes.Reader) (fixed.QW, error) {
	var v int32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, ErrInvalidMessage
	}
	return fixed.QW(v), nil
}

func writeQWPos(buf *bytes.Buffer, p fixed.QWPos) {
	writeQW(buf, p.X)
	writeQW(buf, p.Y)
}

func readQWPos(r *bytes.Reader) (fixed.QWPos, error) {
	x, err := readQW(r)
	if err != nil {
		return fixed.QWPos{}, err
	}
	y, err := readQW(r)
	if err != nil {
		return fixed.QWPos{}, err
	}
	return fixed.QWPos{X: x, Y: y}, nil
}

// JoinRequestPayload is JOIN_REQUEST's body.
type JoinRequestPayload struct {
	ProtocolVersion uint8
	Username        string
	Frame           uint16
}

func (p JoinRequestPayload) Encode() ([]byte, error) {
	if len(p.Username) > 255 {
		return nil, ErrInvalidMessage
	}
	buf := new(bytes.Buffer)
	buf.WriteByte(p.ProtocolVersion)
	buf.WriteByte(byte(len(p.Username)))
	buf.WriteString(p.Username)
	_ = binary.Write(buf, binary.LittleEndian, p.Frame)
	if buf.Len() > MaxPayloadSize {
		return nil, ErrInvalidMessage
	}
	return buf.Bytes(), nil
}

func DecodeJoinRequest(data []byte) (JoinRequestPayload, error) {
	r := bytes.NewReader(data)
	var p JoinRequestPayload
	var version, ulen byte
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return p, ErrInvalidMessage
	}
	if err := binary.Read(r, binary.LittleEndian, &ulen); err != nil {
		return p, ErrInvalidMessage
	}
	name := make([]byte, ulen)
	if ulen > 0 {
		if _, err := io.ReadFull(r, name); err != nil {
			return p, ErrInvalidMessage
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Frame); err != nil {
		return p, ErrInvalidMessage
	}
	if !utf8.Valid(name) {
		return p, ErrInvalidMessage
	}
	p.ProtocolVersion = version
	p.Username = string(name)
	return p, nil
}

// JoinAcceptPayload is JOIN_ACCEPT's body.
type JoinAcceptPayload struct {
	SimTickRate uint8
	NetTickRate uint8
	ClientFrame uint16
	ServerFrame uint16
	SnakeID     uint16
	Spawn       fixed.QWPos
}

func (p JoinAcceptPayload) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte(p.SimTickRate)
	buf.WriteByte(p.NetTickRate)
	_ = binary.Write(buf, binary.LittleEndian, p.ClientFrame)
	_ = binary.Write(buf, binary.LittleEndian, p.ServerFrame)
	_ = binary.Write(buf, binary.LittleEndian, p.SnakeID)
	writeQWPos(buf, p.Spawn)
	return buf.Bytes(), nil
}

func DecodeJoinAccept(data []byte) (JoinAcceptPayload, error) {
	r := bytes.NewReader(data)
	var p JoinAcceptPayload
	fields := []interface{}{&p.SimTickRate, &p.NetTickRate}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return p, ErrInvalidMessage
		}
	}
	for _, f := range []interface{}{&p.ClientFrame, &p.ServerFrame, &p.SnakeID} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return p, ErrInvalidMessage
		}
	}
	spawn, err := readQWPos(r)
	if err != nil {
		return p, err
	}
	p.Spawn = spawn
	return p, nil
}

// JoinDenyPayload is the body shared by JOIN_DENY_BAD_PROTOCOL,
// JOIN_DENY_BAD_USERNAME and JOIN_DENY_SERVER_FULL.
type JoinDenyPayload struct {
	Error string
}

func (p JoinDenyPayload) Encode() ([]byte, error) {
	if len(p.Error) > 255 {
		p.Error = p.Error[:255]
	}
	buf := new(bytes.Buffer)
	buf.WriteByte(byte(len(p.Error)))
	buf.WriteString(p.Error)
	return buf.Bytes(), nil
}

func DecodeJoinDeny(data []byte) (JoinDenyPayload, error) {
	r := bytes.NewReader(data)
	var p JoinDenyPayload
	var elen byte
	if err := binary.Read(r, binary.LittleEndian, &elen); err != nil {
		return p, ErrInvalidMessage
	}
	msg := make([]byte, elen)
	if elen > 0 {
		if _, err := io.ReadFull(r, msg); err != nil {
			return p, ErrInvalidMessage
		}
	}
	p.Error = string(msg)
	return p, nil
}

// CommandsPayload is COMMANDS' body: the nth command applies to frame
// LastFrame-n, so Cmds[0] is the newest command.
type CommandsPayload struct {
	LastFrame uint16
	Cmds      []cmdqueue.Command
}

func (p CommandsPayload) Encode() ([]byte, error) {
	count := len(p.Cmds)
	if count > 255 {
		count = 255
	}
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.LastFrame)
	buf.WriteByte(byte(count))
	for i := 0; i < count; i++ {
		c := p.Cmds[i]
		buf.WriteByte(c.Angle)
		buf.WriteByte(c.Speed)
		buf.WriteByte(byte(c.Action))
	}
	if buf.Len() > MaxPayloadSize {
		return nil, ErrInvalidMessage
	}
	return buf.Bytes(), nil
}

func DecodeCommands(data []byte) (CommandsPayload, error) {
	r := bytes.NewReader(data)
	var p CommandsPayload
	if err := binary.Read(r, binary.LittleEndian, &p.LastFrame); err != nil {
		return p, ErrInvalidMessage
	}
	var count byte
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return p, ErrInvalidMessage
	}
	p.Cmds = make([]cmdqueue.Command, count)
	for i := 0; i < int(count); i++ {
		var angle, speed, action byte
		if err := binary.Read(r, binary.LittleEndian, &angle); err != nil {
			return p, ErrInvalidMessage
		}
		if err := binary.Read(r, binary.LittleEndian, &speed); err != nil {
			return p, ErrInvalidMessage
		}
		if err := binary.Read(r, binary.LittleEndian, &action); err != nil {
			return p, ErrInvalidMessage
		}
		p.Cmds[i] = cmdqueue.Command{Angle: angle, Speed: speed, Action: cmdqueue.Action(action)}
	}
	return p, nil
}

// FeedbackPayload is FEEDBACK's body: diff is clamped to ±10 by the sender.
type FeedbackPayload struct {
	Diff  int8
	Frame uint16
}

func (p FeedbackPayload) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.Diff)
	_ = binary.Write(buf, binary.LittleEndian, p.Frame)
	return buf.Bytes(), nil
}

func DecodeFeedback(data []byte) (FeedbackPayload, error) {
	r := bytes.NewReader(data)
	var p FeedbackPayload
	if err := binary.Read(r, binary.LittleEndian, &p.Diff); err != nil {
		return p, ErrInvalidMessage
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Frame); err != nil {
		return p, ErrInvalidMessage
	}
	return p, nil
}

// SnakeHeadPayload is SNAKE_HEAD's body.
type SnakeHeadPayload struct {
	Frame   uint16
	SnakeID uint16
	Head    snake.Handle
}

func (p SnakeHeadPayload) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.Frame)
	_ = binary.Write(buf, binary.LittleEndian, p.SnakeID)
	writeQWPos(buf, p.Head.Pos)
	buf.WriteByte(byte(p.Head.Angle))
	buf.WriteByte(p.Head.LenForwards)
	buf.WriteByte(p.Head.LenBackwards)
	return buf.Bytes(), nil
}

func DecodeSnakeHead(data []byte) (SnakeHeadPayload, error) {
	r := bytes.NewReader(data)
	var p SnakeHeadPayload
	if err := binary.Read(r, binary.LittleEndian, &p.Frame); err != nil {
		return p, ErrInvalidMessage
	}
	if err := binary.Read(r, binary.LittleEndian, &p.SnakeID); err != nil {
		return p, ErrInvalidMessage
	}
	pos, err := readQWPos(r)
	if err != nil {
		return p, err
	}
	var angle, lf, lb byte
	if err := binary.Read(r, binary.LittleEndian, &angle); err != nil {
		return p, ErrInvalidMessage
	}
	if err := binary.Read(r, binary.LittleEndian, &lf); err != nil {
		return p, ErrInvalidMessage
	}
	if err := binary.Read(r, binary.LittleEndian, &lb); err != nil {
		return p, ErrInvalidMessage
	}
	p.Head = snake.Handle{Pos: pos, Angle: fixed.QA(angle), LenForwards: lf, LenBackwards: lb}
	return p, nil
}

// SnakeBezierPayload is SNAKE_BEZIER's body: one newly emitted handle to
// append to the receiver's copy of a snake's body.
type SnakeBezierPayload struct {
	SnakeID uint16
	Frame   uint16
	Handle  snake.Handle
}

func (p SnakeBezierPayload) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.SnakeID)
	_ = binary.Write(buf, binary.LittleEndian, p.Frame)
	writeQWPos(buf, p.Handle.Pos)
	buf.WriteByte(byte(p.Handle.Angle))
	buf.WriteByte(p.Handle.LenForwards)
	buf.WriteByte(p.Handle.LenBackwards)
	return buf.Bytes(), nil
}

func DecodeSnakeBezier(data []byte) (SnakeBezierPayload, error) {
	r := bytes.NewReader(data)
	var p SnakeBezierPayload
	if err := binary.Read(r, binary.LittleEndian, &p.SnakeID); err != nil {
		return p, ErrInvalidMessage
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Frame); err != nil {
		return p, ErrInvalidMessage
	}
	pos, err := readQWPos(r)
	if err != nil {
		return p, err
	}
	var angle, lf, lb byte
	if err := binary.Read(r, binary.LittleEndian, &angle); err != nil {
		return p, ErrInvalidMessage
	}
	if err := binary.Read(r, binary.LittleEndian, &lf); err != nil {
		return p, ErrInvalidMessage
	}
	if err := binary.Read(r, binary.LittleEndian, &lb); err != nil {
		return p, ErrInvalidMessage
	}
	p.Handle = snake.Handle{Pos: pos, Angle: fixed.QA(angle), LenForwards: lf, LenBackwards: lb}
	return p, nil
}

// SnakeBezierAckPayload acknowledges receipt of bézier handles up to Frame.
type SnakeBezierAckPayload struct {
	SnakeID uint16
	Frame   uint16
}

func (p SnakeBezierAckPayload) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.SnakeID)
	_ = binary.Write(buf, binary.LittleEndian, p.Frame)
	return buf.Bytes(), nil
}

func DecodeSnakeBezierAck(data []byte) (SnakeBezierAckPayload, error) {
	r := bytes.NewReader(data)
	var p SnakeBezierAckPayload
	if err := binary.Read(r, binary.LittleEndian, &p.SnakeID); err != nil {
		return p, ErrInvalidMessage
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Frame); err != nil {
		return p, ErrInvalidMessage
	}
	return p, nil
}

// SnakeMetadataPayload carries the slow-changing, non-per-tick attributes
// of a snake: its display name and upgrade count (upgrades drive param
// derivation alongside food_eaten, which travels on SNAKE_HEAD/BEZIER
// implicitly via growth rather than being repeated here).
type SnakeMetadataPayload struct {
	SnakeID  uint16
	Username string
	Upgrades uint16
}

func (p SnakeMetadataPayload) Encode() ([]byte, error) {
	if len(p.Username) > 64 {
		p.Username = p.Username[:64]
	}
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.SnakeID)
	buf.WriteByte(byte(len(p.Username)))
	buf.WriteString(p.Username)
	_ = binary.Write(buf, binary.LittleEndian, p.Upgrades)
	if buf.Len() > MaxPayloadSize {
		return nil, ErrInvalidMessage
	}
	return buf.Bytes(), nil
}

func DecodeSnakeMetadata(data []byte) (SnakeMetadataPayload, error) {
	r := bytes.NewReader(data)
	var p SnakeMetadataPayload
	if err := binary.Read(r, binary.LittleEndian, &p.SnakeID); err != nil {
		return p, ErrInvalidMessage
	}
	var ulen byte
	if err := binary.Read(r, binary.LittleEndian, &ulen); err != nil {
		return p, ErrInvalidMessage
	}
	name := make([]byte, ulen)
	if ulen > 0 {
		if _, err := io.ReadFull(r, name); err != nil {
			return p, ErrInvalidMessage
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Upgrades); err != nil {
		return p, ErrInvalidMessage
	}
	p.Username = string(name)
	return p, nil
}

// SnakeMetadataAckPayload acknowledges receipt of a snake's metadata.
type SnakeMetadataAckPayload struct {
	SnakeID uint16
}

func (p SnakeMetadataAckPayload) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.SnakeID)
	return buf.Bytes(), nil
}

func DecodeSnakeMetadataAck(data []byte) (SnakeMetadataAckPayload, error) {
	r := bytes.NewReader(data)
	var p SnakeMetadataAckPayload
	if err := binary.Read(r, binary.LittleEndian, &p.SnakeID); err != nil {
		return p, ErrInvalidMessage
	}
	return p, nil
}

// maxFoodPerRecord bounds how many food positions fit in one FOOD_CREATE
// record's payload: 2 bytes cluster index + 1 byte count + 8 bytes/food.
const maxFoodPerRecord = (MaxPayloadSize - 3) / 8

// FoodCreatePayload announces new food within a cluster.
type FoodCreatePayload struct {
	ClusterIndex uint16
	Food         []fixed.QWPos
}

func (p FoodCreatePayload) Encode() ([]byte, error) {
	if len(p.Food) > maxFoodPerRecord {
		return nil, ErrInvalidMessage
	}
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.ClusterIndex)
	buf.WriteByte(byte(len(p.Food)))
	for _, f := range p.Food {
		writeQWPos(buf, f)
	}
	return buf.Bytes(), nil
}

func DecodeFoodCreate(data []byte) (FoodCreatePayload, error) {
	r := bytes.NewReader(data)
	var p FoodCreatePayload
	if err := binary.Read(r, binary.LittleEndian, &p.ClusterIndex); err != nil {
		return p, ErrInvalidMessage
	}
	var count byte
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return p, ErrInvalidMessage
	}
	p.Food = make([]fixed.QWPos, count)
	for i := 0; i < int(count); i++ {
		pos, err := readQWPos(r)
		if err != nil {
			return p, err
		}
		p.Food[i] = pos
	}
	return p, nil
}

// FoodCreateAckPayload acknowledges a FOOD_CREATE for a cluster.
type FoodCreateAckPayload struct {
	ClusterIndex uint16
}

func (p FoodCreateAckPayload) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.ClusterIndex)
	return buf.Bytes(), nil
}

func DecodeFoodCreateAck(data []byte) (FoodCreateAckPayload, error) {
	r := bytes.NewReader(data)
	var p FoodCreateAckPayload
	if err := binary.Read(r, binary.LittleEndian, &p.ClusterIndex); err != nil {
		return p, ErrInvalidMessage
	}
	return p, nil
}

// maxIndicesPerRecord bounds how many eaten-food indices fit in one
// FOOD_DESTROY record.
const maxIndicesPerRecord = MaxPayloadSize - 3

// FoodDestroyPayload announces food eaten within a cluster, by index into
// that cluster's food slice at the time of the eat.
type FoodDestroyPayload struct {
	ClusterIndex uint16
	Indices      []uint8
}

func (p FoodDestroyPayload) Encode() ([]byte, error) {
	if len(p.Indices) > maxIndicesPerRecord {
		return nil, ErrInvalidMessage
	}
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.ClusterIndex)
	buf.WriteByte(byte(len(p.Indices)))
	buf.Write(p.Indices)
	return buf.Bytes(), nil
}

func DecodeFoodDestroy(data []byte) (FoodDestroyPayload, error) {
	r := bytes.NewReader(data)
	var p FoodDestroyPayload
	if err := binary.Read(r, binary.LittleEndian, &p.ClusterIndex); err != nil {
		return p, ErrInvalidMessage
	}
	var count byte
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return p, ErrInvalidMessage
	}
	p.Indices = make([]uint8, count)
	if count > 0 {
		if _, err := io.ReadFull(r, p.Indices); err != nil {
			return p, ErrInvalidMessage
		}
	}
	return p, nil
}

// FoodDestroyAckPayload acknowledges a FOOD_DESTROY for a cluster.
type FoodDestroyAckPayload struct {
	ClusterIndex uint16
}

func (p FoodDestroyAckPayload) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, p.ClusterIndex)
	return buf.Bytes(), nil
}

func DecodeFoodDestroyAck(data []byte) (FoodDestroyAckPayload, error) {
	r := bytes.NewReader(data)
	var p FoodDestroyAckPayload
	if err := binary.Read(r, binary.LittleEndian, &p.ClusterIndex); err != nil {
		return p, ErrInvalidMessage
	}
	return p, nil
}
