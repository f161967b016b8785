package grpcsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

const (
	// IdempotencyKeyHeader: metadata-ключ, по которому повторный запрос получает сохранённый ответ.
	IdempotencyKeyHeader = "idempotency-key"
	idempotencyTTL       = domain.DefaultIdempotencyTTL
)

// idempotency оборачивает мутирующие методы в кэш ответов по idempotency-key.
// Без ключа в metadata запрос выполняется как обычно.
type idempotency struct {
	repo   domain.IdempotencyRepository
	logger *log.Entry
	now    func() time.Time
}

func withIdempotency[T wireMessage](
	ctx context.Context,
	idem *idempotency,
	method string,
	principal domain.Principal,
	req wireMessage,
	newResp func() T,
	handler func(context.Context) (T, error),
) (T, error) {
	var zero T

	if idem == nil || idem.repo == nil {
		return handler(ctx)
	}
	key, ok := readIdempotencyKey(ctx)
	if !ok {
		return handler(ctx)
	}
	// Ключи разных пользователей не пересекаются.
	key = principal.UserID + ":" + key

	reqHash, err := buildIdempotencyRequestHash(method, req)
	if err != nil {
		idem.logger.WithError(err).WithField("method", method).Warn("failed to build idempotency request hash")
		return zero, status.Error(codes.Internal, "failed to initialize idempotency request")
	}

	record, err := idem.repo.CreateProcessing(ctx, key, reqHash, idem.now().Add(idempotencyTTL))
	if err != nil {
		return replayIdempotency(idem, err, record, newResp)
	}

	resp, runErr := handler(ctx)
	if runErr != nil {
		if retryableCode(status.Code(runErr)) {
			idem.release(ctx, key)
		} else {
			idem.cacheFailure(ctx, key, runErr)
		}
		return resp, runErr
	}

	if cacheErr := idem.cacheSuccess(ctx, key, resp); cacheErr != nil {
		idem.logger.WithError(cacheErr).WithField("idempotency_key", key).Warn("failed to store idempotent success response")
	}
	return resp, nil
}

func replayIdempotency[T wireMessage](idem *idempotency, createErr error, record domain.IdempotencyRecord, newResp func() T) (T, error) {
	var zero T

	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		return zero, status.Error(codes.AlreadyExists, "idempotency key is already used with different request payload")
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone:
			if len(record.ResponseBody) == 0 {
				return zero, status.Error(codes.Internal, "idempotency cache is empty")
			}
			resp := newResp()
			cached := newProto(resp)
			err := protojson.Unmarshal(record.ResponseBody, cached)
			if err == nil {
				err = fromProto(resp, cached)
			}
			if err != nil {
				idem.logger.WithError(err).WithField("idempotency_key", record.Key).Warn("failed to decode cached idempotency response")
				return zero, status.Error(codes.Internal, "failed to decode cached idempotency response")
			}
			return resp, nil
		case domain.IdempotencyStatusProcessing:
			return zero, status.Error(codes.Aborted, "request with the same idempotency key is already processing")
		case domain.IdempotencyStatusFailed:
			return zero, decodeIdempotencyFailure(record)
		default:
			return zero, status.Error(codes.Internal, "unknown idempotency record status")
		}
	default:
		idem.logger.WithError(createErr).Warn("failed to create idempotency record")
		return zero, status.Error(codes.Internal, "failed to initialize idempotency request")
	}
}

func (i *idempotency) cacheSuccess(ctx context.Context, key string, resp wireMessage) error {
	data, err := protojson.Marshal(toProto(resp))
	if err != nil {
		return err
	}
	return i.repo.MarkDone(context.WithoutCancel(ctx), key, data, int(codes.OK))
}

// retryableCode отделяет сбои, после которых повтор с тем же ключом должен
// выполнить запрос заново, от окончательных отказов бизнес-правил.
func retryableCode(code codes.Code) bool {
	switch code {
	case codes.Aborted, codes.Internal, codes.Unavailable, codes.Canceled,
		codes.DeadlineExceeded, codes.Unknown, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func (i *idempotency) release(ctx context.Context, key string) {
	if err := i.repo.Release(context.WithoutCancel(ctx), key); err != nil {
		i.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to release idempotency key")
	}
}

func (i *idempotency) cacheFailure(ctx context.Context, key string, runErr error) {
	st := status.Convert(runErr)
	code := st.Code()
	if code == codes.OK {
		code = codes.Internal
	}

	payload, err := protojson.Marshal(&spb.Status{
		Code:    int32(code), //nolint:gosec // codes.Code is a bounded enum value.
		Message: st.Message(),
	})
	if err != nil {
		i.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to encode idempotency failure payload")
		payload = nil
	}

	if err := i.repo.MarkFailed(context.WithoutCancel(ctx), key, payload, int(code)); err != nil {
		i.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotency failure response")
	}
}

func decodeIdempotencyFailure(record domain.IdempotencyRecord) error {
	if len(record.ResponseBody) > 0 {
		var payload spb.Status
		if err := protojson.Unmarshal(record.ResponseBody, &payload); err == nil {
			if code, ok := grpcCode(int(payload.GetCode())); ok && code != codes.OK {
				message := payload.GetMessage()
				if message == "" {
					message = "previous request with the same idempotency key failed"
				}
				return status.Error(code, message)
			}
		}
	}

	if code, ok := grpcCode(record.StatusCode); ok && code != codes.OK {
		return status.Error(code, "previous request with the same idempotency key failed")
	}
	return status.Error(codes.Internal, "previous request with the same idempotency key failed")
}

func grpcCode(value int) (codes.Code, bool) {
	if value < int(codes.OK) || value > int(codes.Unauthenticated) {
		return codes.Internal, false
	}
	return codes.Code(uint32(value)), true
}

func readIdempotencyKey(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(IdempotencyKeyHeader)
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

func buildIdempotencyRequestHash(method string, req wireMessage) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}

	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(toProto(req))
	if err != nil {
		return "", err
	}

	payload := make([]byte, 0, len(method)+1+len(data))
	payload = append(payload, method...)
	payload = append(payload, ':')
	payload = append(payload, data...)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
