package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	grpcstats "google.golang.org/grpc/stats"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
	"github.com/rwandaorbitguard/orbit-guard/internal/scene"
	"github.com/rwandaorbitguard/orbit-guard/internal/stats"
	"github.com/rwandaorbitguard/orbit-guard/kb"
	"github.com/rwandaorbitguard/orbit-guard/model"
)

// Service implements OrbitServiceServer over one shared scene. Each client
// connection may have one prediction in flight; Predict answers
// ResourceExhausted to a second call on the same connection.
type Service struct {
	scene      *scene.Scene
	submitters *submitters
	log        logging.Logger
}

var _ OrbitServiceServer = (*Service)(nil)

// NewService serves sc and forwards predictions to p.
func NewService(sc *scene.Scene, p prediction.Predictor, log logging.Logger) *Service {
	if log == nil {
		log = logging.Noop()
	}
	return &Service{scene: sc, submitters: newSubmitters(p), log: log}
}

// StatsHandler tags client connections so predictions are tracked per
// connection. NewServer installs it.
func (s *Service) StatsHandler() grpcstats.Handler { return s.submitters }

// Overview returns the dashboard statistics of the scene.
func (s *Service) Overview(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(stats.Compute(s.scene.Catalog()))
	return out, ToStatusError(err)
}

// Snapshot returns the scene filtered by the request document. Recognised
// keys are showSatellites, showDebris, showOrbits, showCollisions (bools)
// and type, size, severity (string lists).
func (s *Service) Snapshot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f, err := filtersFromStruct(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := toStruct(s.scene.Snapshot(f))
	return out, ToStatusError(err)
}

// Predict forwards a state vector to the prediction service. Fields may be
// numbers or numeric strings.
func (s *Service) Predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	form := prediction.Form{
		X:  formValue(fields["x_start"]),
		Y:  formValue(fields["y_start"]),
		Z:  formValue(fields["z_start"]),
		Vx: formValue(fields["Vx_start"]),
		Vy: formValue(fields["Vy_start"]),
		Vz: formValue(fields["Vz_start"]),
	}
	resp, err := s.submitters.get(ctx).Submit(ctx, form)
	if err != nil {
		logging.FromContext(ctx, s.log).Warn(ctx, "prediction failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	out, err := toStruct(struct {
		prediction.Response
		Severity model.Severity `json:"severity"`
	}{resp, resp.Severity()})
	return out, ToStatusError(err)
}

func formValue(v *structpb.Value) string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'g', -1, 64)
	default:
		return ""
	}
}

func filtersFromStruct(in *structpb.Struct) (scene.Filters, error) {
	f := scene.DefaultFilters()
	fields := in.GetFields()
	toggles := map[string]*bool{
		"showSatellites": &f.ShowSatellites,
		"showDebris":     &f.ShowDebris,
		"showOrbits":     &f.ShowOrbits,
		"showCollisions": &f.ShowCollisions,
	}
	for key, dst := range toggles {
		v, ok := fields[key]
		if !ok {
			continue
		}
		b, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return f, fmt.Errorf("%w: %s must be a bool", ErrInvalidArgument, key)
		}
		*dst = b.BoolValue
	}

	types, err := stringList[model.SatelliteType](fields, "type")
	if err != nil {
		return f, err
	}
	sizes, err := stringList[model.DebrisSize](fields, "size")
	if err != nil {
		return f, err
	}
	severities, err := stringList[model.Severity](fields, "severity")
	if err != nil {
		return f, err
	}
	f.Satellites = kb.SatelliteFilter{Types: types}
	f.Debris = kb.DebrisFilter{Sizes: sizes}
	f.Collisions = kb.CollisionFilter{Severities: severities}
	return f, nil
}

func stringList[T ~string](fields map[string]*structpb.Value, key string) ([]T, error) {
	v, ok := fields[key]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: %s must be a list of strings", ErrInvalidArgument, key)
	}
	out := make([]T, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a list of strings", ErrInvalidArgument, key)
		}
		out = append(out, T(sv.StringValue))
	}
	return out, nil
}

// toStruct converts a JSON-tagged value into a Struct document.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("convert response: %w", err)
	}
	return out, nil
}
