package grpcsvc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// SchemaFile: путь proto-файла foodorder.v1 в protoregistry.GlobalFiles.
const SchemaFile = "foodorder/v1/foodorder.proto"

const schemaPackage = "foodorder.v1"

// schema регистрируется при инициализации пакета: по ней работают
// proto-кодек, protojson и gRPC reflection.
var schema = mustRegisterSchema()

func mustRegisterSchema() protoreflect.FileDescriptor {
	file, err := newSchemaFile()
	if err != nil {
		panic(fmt.Sprintf("grpcsvc: build %s: %v", SchemaFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(file); err != nil {
		panic(fmt.Sprintf("grpcsvc: register %s: %v", SchemaFile, err))
	}
	return file
}

// newSchemaFile собирает и проверяет дескриптор без регистрации.
func newSchemaFile() (protoreflect.FileDescriptor, error) {
	return protodesc.NewFile(schemaProto(), protoregistry.GlobalFiles)
}

func schemaProto() *descriptorpb.FileDescriptorProto {
	timestamp := timestamppb.File_google_protobuf_timestamp_proto.Path()

	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(SchemaFile),
		Package:    proto.String(schemaPackage),
		Syntax:     proto.String("proto3"),
		Dependency: []string{timestamp},
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/vladislavdragonenkov/foodcart/internal/service/grpc;grpcsvc"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			messageProto("Empty"),

			messageProto("CreateCartRequest",
				stringField("store_id", 1),
				stringField("product_id", 2),
				int32Field("quantity", 3),
			),
			messageProto("SelectCartRequest"),
			messageProto("SelectCartsRequest"),
			messageProto("CartProductRequest",
				stringField("cart_id", 1),
				stringField("product_id", 2),
			),
			messageProto("DeleteCartRequest",
				stringField("cart_id", 1),
			),
			messageProto("OrderCartRequest",
				stringField("cart_id", 1),
				stringField("address", 2),
				stringField("phone", 3),
				stringField("comment", 4),
			),
			messageProto("CartProduct",
				stringField("id", 1),
				stringField("cart_id", 2),
				stringField("product_id", 3),
				int32Field("quantity", 4),
				int64Field("unit_price_minor", 5),
				int64Field("line_total_minor", 6),
			),
			messageProto("Delivery",
				stringField("address", 1),
				stringField("phone", 2),
				stringField("comment", 3),
			),
			messageProto("Cart",
				stringField("id", 1),
				stringField("user_id", 2),
				stringField("store_id", 3),
				stringField("status", 4),
				int64Field("total_price_minor", 5),
				repeatedField("items", 6, "CartProduct"),
				messageField("delivery", 7, "Delivery"),
				timestampField("ordered_at", 8),
				timestampField("created_at", 9),
			),
			messageProto("CartResponse",
				messageField("cart", 1, "Cart"),
			),
			messageProto("SelectCartsResponse",
				repeatedField("carts", 1, "Cart"),
			),
			messageProto("CartProductResponse",
				messageField("item", 1, "CartProduct"),
			),

			messageProto("SelectStoresRequest"),
			messageProto("SelectStoreRequest",
				stringField("store_id", 1),
			),
			messageProto("SelectMyStoreRequest"),
			messageProto("CreateStoreRequest",
				stringField("name", 1),
				stringField("description", 2),
				stringField("address", 3),
			),
			messageProto("ModifyStoreRequest",
				stringField("store_id", 1),
				stringField("name", 2),
				stringField("description", 3),
				stringField("address", 4),
			),
			messageProto("DeleteStoreRequest",
				stringField("store_id", 1),
			),
			messageProto("Store",
				stringField("id", 1),
				stringField("owner_id", 2),
				stringField("name", 3),
				stringField("description", 4),
				stringField("address", 5),
				timestampField("created_at", 6),
				timestampField("updated_at", 7),
			),
			messageProto("StoreResponse",
				messageField("store", 1, "Store"),
			),
			messageProto("SelectStoresResponse",
				repeatedField("stores", 1, "Store"),
			),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			serviceProto("CartService",
				methodProto("CreateCart", "CreateCartRequest", "Empty"),
				methodProto("SelectCart", "SelectCartRequest", "CartResponse"),
				methodProto("SelectCarts", "SelectCartsRequest", "SelectCartsResponse"),
				methodProto("AddCartProduct", "CartProductRequest", "CartProductResponse"),
				methodProto("SubtractCartProduct", "CartProductRequest", "CartProductResponse"),
				methodProto("DeleteCartProduct", "CartProductRequest", "Empty"),
				methodProto("DeleteCart", "DeleteCartRequest", "Empty"),
				methodProto("OrderCart", "OrderCartRequest", "Empty"),
			),
			serviceProto("StoreService",
				methodProto("SelectStores", "SelectStoresRequest", "SelectStoresResponse"),
				methodProto("SelectStore", "SelectStoreRequest", "StoreResponse"),
				methodProto("SelectMyStore", "SelectMyStoreRequest", "StoreResponse"),
				methodProto("CreateStore", "CreateStoreRequest", "Empty"),
				methodProto("ModifyStore", "ModifyStoreRequest", "Empty"),
				methodProto("DeleteStore", "DeleteStoreRequest", "Empty"),
			),
		},
	}
}

func messageProto(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func fieldProto(name string, number int32, kind descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   kind.Enum(),
	}
}

func stringField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return fieldProto(name, number, descriptorpb.FieldDescriptorProto_TYPE_STRING)
}

func int32Field(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return fieldProto(name, number, descriptorpb.FieldDescriptorProto_TYPE_INT32)
}

func int64Field(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return fieldProto(name, number, descriptorpb.FieldDescriptorProto_TYPE_INT64)
}

func messageField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := fieldProto(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String("." + schemaPackage + "." + typeName)
	return f
}

func repeatedField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := messageField(name, number, typeName)
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func timestampField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	f := fieldProto(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String("." + string((&timestamppb.Timestamp{}).ProtoReflect().Descriptor().FullName()))
	return f
}

func serviceProto(name string, methods ...*descriptorpb.MethodDescriptorProto) *descriptorpb.ServiceDescriptorProto {
	return &descriptorpb.ServiceDescriptorProto{Name: proto.String(name), Method: methods}
}

func methodProto(name, input, output string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String("." + schemaPackage + "." + input),
		OutputType: proto.String("." + schemaPackage + "." + output),
	}
}

// messageDescriptor возвращает дескриптор сообщения foodorder.v1 по имени.
func messageDescriptor(name protoreflect.Name) protoreflect.MessageDescriptor {
	md := schema.Messages().ByName(name)
	if md == nil {
		panic(fmt.Sprintf("grpcsvc: message %s.%s is not declared", schemaPackage, name))
	}
	return md
}
