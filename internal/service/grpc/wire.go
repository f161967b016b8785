package grpcsvc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// wireMessage связывает Go-представление сообщения с его описанием в схеме foodorder.v1.
type wireMessage interface {
	protoName() protoreflect.Name
	fillProto(m protoreflect.Message)
	readProto(m protoreflect.Message)
}

// newProto создаёт пустое proto-сообщение того же типа, что w.
func newProto(w wireMessage) *dynamicpb.Message {
	return dynamicpb.NewMessage(messageDescriptor(w.protoName()))
}

// toProto переводит w в proto-сообщение для кодека и protojson.
func toProto(w wireMessage) *dynamicpb.Message {
	m := newProto(w)
	w.fillProto(m)
	return m
}

// fromProto заполняет w из принятого proto-сообщения.
func fromProto(w wireMessage, msg proto.Message) error {
	m := msg.ProtoReflect()
	if got, want := m.Descriptor().FullName(), messageDescriptor(w.protoName()).FullName(); got != want {
		return fmt.Errorf("unexpected message %s, want %s", got, want)
	}
	w.readProto(m)
	return nil
}

func fieldOf(m protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil {
		panic(fmt.Sprintf("grpcsvc: %s has no field %s", m.Descriptor().FullName(), name))
	}
	return fd
}

func setString(m protoreflect.Message, name protoreflect.Name, v string) {
	m.Set(fieldOf(m, name), protoreflect.ValueOfString(v))
}

func getString(m protoreflect.Message, name protoreflect.Name) string {
	return m.Get(fieldOf(m, name)).String()
}

func setInt32(m protoreflect.Message, name protoreflect.Name, v int32) {
	m.Set(fieldOf(m, name), protoreflect.ValueOfInt32(v))
}

func getInt32(m protoreflect.Message, name protoreflect.Name) int32 {
	return int32(m.Get(fieldOf(m, name)).Int()) //nolint:gosec // int32 field.
}

func setInt64(m protoreflect.Message, name protoreflect.Name, v int64) {
	m.Set(fieldOf(m, name), protoreflect.ValueOfInt64(v))
}

func getInt64(m protoreflect.Message, name protoreflect.Name) int64 {
	return m.Get(fieldOf(m, name)).Int()
}

// setTime пишет google.protobuf.Timestamp; нулевое время оставляет поле пустым.
func setTime(m protoreflect.Message, name protoreflect.Name, t time.Time) {
	if t.IsZero() {
		return
	}
	m.Set(fieldOf(m, name), protoreflect.ValueOfMessage(timestamppb.New(t).ProtoReflect()))
}

func getTime(m protoreflect.Message, name protoreflect.Name) time.Time {
	fd := fieldOf(m, name)
	if !m.Has(fd) {
		return time.Time{}
	}
	ts := &timestamppb.Timestamp{}
	proto.Merge(ts, m.Get(fd).Message().Interface())
	return ts.AsTime()
}

func setMessage(m protoreflect.Message, name protoreflect.Name, w wireMessage) {
	fd := fieldOf(m, name)
	v := m.NewField(fd)
	w.fillProto(v.Message())
	m.Set(fd, v)
}

// getMessage заполняет w из вложенного сообщения и сообщает, было ли поле задано.
func getMessage(m protoreflect.Message, name protoreflect.Name, w wireMessage) bool {
	fd := fieldOf(m, name)
	if !m.Has(fd) {
		return false
	}
	w.readProto(m.Get(fd).Message())
	return true
}

func appendMessage(m protoreflect.Message, name protoreflect.Name, w wireMessage) {
	list := m.Mutable(fieldOf(m, name)).List()
	v := list.NewElement()
	w.fillProto(v.Message())
	list.Append(v)
}

func rangeMessages(m protoreflect.Message, name protoreflect.Name, fn func(protoreflect.Message)) {
	list := m.Get(fieldOf(m, name)).List()
	for i := 0; i < list.Len(); i++ {
		fn(list.Get(i).Message())
	}
}
