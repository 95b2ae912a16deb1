package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"strava_sync/internal/config"
	"strava_sync/internal/domain"
	"strava_sync/internal/fitfile"
	"strava_sync/internal/retry"
	"strava_sync/internal/service/mocks"
	"strava_sync/internal/source/strava"
)

type UploadServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	uploader   *mocks.MockUploader
	updater    *mocks.MockActivityUpdater
	classifier *mocks.MockFileClassifier
	publisher  *mocks.MockPublisher

	out     *syncBuffer
	gear    config.GearConfig
	service *UploadService
	logger  *slog.Logger
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSuffix(b.buf.String(), "\n"), "\n")
}

func (s *UploadServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.uploader = mocks.NewMockUploader(s.ctrl)
	s.updater = mocks.NewMockActivityUpdater(s.ctrl)
	s.classifier = mocks.NewMockFileClassifier(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.out = &syncBuffer{}
	s.gear = config.GearConfig{Run: "g6646936", Ride: "b3939535"}
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = s.newService()
}

func (s *UploadServiceTestSuite) newService(opts ...UploadOption) *UploadService {
	executor := retry.New(time.Millisecond, retry.RateLimited, s.logger)
	return NewUploadService(s.uploader, s.updater, s.classifier, executor, s.gear, s.out, s.logger, opts...)
}

func (s *UploadServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestUploadServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UploadServiceTestSuite))
}

func (s *UploadServiceTestSuite) TestUploadAll_FailingTaskDoesNotAffectOthers() {
	ctx := context.Background()
	paths := []string{"/in/1.fit", "/in/2.fit", "/in/3.fit", "/in/4.fit", "/in/5.fit"}

	s.classifier.EXPECT().Classify(gomock.Any()).Return(nil, fitfile.ErrUnsupported).Times(5)
	s.uploader.EXPECT().Upload(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task domain.UploadTask) (*domain.UploadResult, error) {
			if task.FilePath == "/in/3.fit" {
				return nil, &strava.APIError{StatusCode: 400, Message: "Bad Request"}
			}
			return &domain.UploadResult{ExternalID: strings.TrimPrefix(task.FilePath, "/in/")}, nil
		},
	).Times(5)

	report, err := s.service.UploadAll(ctx, paths)

	s.NoError(err)
	s.Len(report.Outcomes, 5)
	s.Equal(4, report.Succeeded)
	s.Equal(1, report.Failed)

	for i, o := range report.Outcomes {
		s.Equal(paths[i], o.Task.FilePath)
		if i == 2 {
			s.ErrorContains(o.Err, "upload: strava api: status 400: Bad Request")
			continue
		}
		s.NoError(o.Err)
	}

	s.ElementsMatch([]string{
		`1.fit: {"externalId":"1.fit"}`,
		`2.fit: {"externalId":"2.fit"}`,
		`3.fit: error: upload: strava api: status 400: Bad Request`,
		`4.fit: {"externalId":"4.fit"}`,
		`5.fit: {"externalId":"5.fit"}`,
	}, s.out.Lines())
}

func (s *UploadServiceTestSuite) TestUploadAll_PatchesProcessedActivity() {
	ctx := context.Background()
	summary := &fitfile.Summary{Sports: []string{"running"}, Distance: 10000}

	s.classifier.EXPECT().Classify("/in/run.fit").Return(summary, nil)
	s.uploader.EXPECT().Upload(gomock.Any(), domain.UploadTask{
		FilePath:     "/in/run.fit",
		DataType:     domain.DataTypeFit,
		ActivityType: domain.ActivityTypeRun,
		GearID:       "g6646936",
	}).Return(&domain.UploadResult{ActivityID: 42, ExternalID: "run.fit"}, nil)

	run := domain.ActivityTypeRun
	gear := "g6646936"
	s.updater.EXPECT().UpdateActivity(gomock.Any(), int64(42), domain.ActivityUpdate{
		Type:   &run,
		GearID: &gear,
	}).Return(nil)

	report, err := s.service.UploadAll(ctx, []string{"/in/run.fit"})

	s.NoError(err)
	s.Equal(1, report.Patched)
	s.True(report.Outcomes[0].Patched)
	s.Equal([]string{`run.fit: {"activityId":42,"externalId":"run.fit"}`}, s.out.Lines())
}

func (s *UploadServiceTestSuite) TestUploadAll_IndoorWorkoutSetsTrainer() {
	ctx := context.Background()
	trainer := true
	workout := domain.ActivityTypeWorkout

	s.classifier.EXPECT().Classify(gomock.Any()).Return(&fitfile.Summary{Sports: []string{"training"}}, nil)
	s.uploader.EXPECT().Upload(gomock.Any(), domain.UploadTask{
		FilePath:     "/in/gym.fit.gz",
		DataType:     domain.DataTypeFitGz,
		ActivityType: domain.ActivityTypeWorkout,
		Trainer:      &trainer,
	}).Return(&domain.UploadResult{ActivityID: 7}, nil)
	s.updater.EXPECT().UpdateActivity(gomock.Any(), int64(7), domain.ActivityUpdate{
		Type:    &workout,
		Trainer: &trainer,
	}).Return(nil)

	report, err := s.service.UploadAll(ctx, []string{"/in/gym.fit.gz"})

	s.NoError(err)
	s.Equal(1, report.Patched)
}

func (s *UploadServiceTestSuite) TestUploadAll_NoPatchWithoutActivityID() {
	ctx := context.Background()

	s.classifier.EXPECT().Classify(gomock.Any()).Return(nil, errors.New("corrupt"))
	s.uploader.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(&domain.UploadResult{
		ExternalID: "2020 juoksu.fit",
		Error:      "2020 juoksu.fit duplicate of activity 1",
	}, nil)

	report, err := s.service.UploadAll(ctx, []string{"/in/2020 juoksu.fit"})

	s.NoError(err)
	s.Equal(1, report.Failed)
	s.Zero(report.Patched)
	s.Equal(
		[]string{`2020 juoksu.fit: {"externalId":"2020 juoksu.fit","error":"2020 juoksu.fit duplicate of activity 1"}`},
		s.out.Lines(),
	)
}

func (s *UploadServiceTestSuite) TestUploadAll_NoPatchWithoutRequestedChanges() {
	ctx := context.Background()

	s.classifier.EXPECT().Classify(gomock.Any()).Return(nil, fitfile.ErrUnsupported)
	s.uploader.EXPECT().Upload(gomock.Any(), domain.UploadTask{
		FilePath: "/in/track.gpx",
		DataType: domain.DataTypeGpx,
	}).Return(&domain.UploadResult{ActivityID: 99, ExternalID: "track.gpx"}, nil)

	report, err := s.service.UploadAll(ctx, []string{"/in/track.gpx"})

	s.NoError(err)
	s.Equal(1, report.Succeeded)
	s.False(report.Outcomes[0].Patched)
}

func (s *UploadServiceTestSuite) TestUploadAll_RetriesRateLimitedUploadAndPatch() {
	ctx := context.Background()
	rateLimited := &strava.APIError{StatusCode: 429, Message: "Rate Limit Exceeded"}

	s.classifier.EXPECT().Classify(gomock.Any()).Return(nil, fitfile.ErrUnsupported)
	gomock.InOrder(
		s.uploader.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(nil, rateLimited),
		s.uploader.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(nil, rateLimited),
		s.uploader.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(&domain.UploadResult{ActivityID: 3}, nil),
	)
	gomock.InOrder(
		s.updater.EXPECT().UpdateActivity(gomock.Any(), int64(3), gomock.Any()).Return(rateLimited),
		s.updater.EXPECT().UpdateActivity(gomock.Any(), int64(3), gomock.Any()).Return(nil),
	)

	report, err := s.service.UploadAll(ctx, []string{"/in/pyöräily.tcx"})

	s.NoError(err)
	s.Equal(1, report.Succeeded)
	s.Equal(1, report.Patched)
}

func (s *UploadServiceTestSuite) TestUploadAll_PatchFailureIsReported() {
	ctx := context.Background()

	s.classifier.EXPECT().Classify(gomock.Any()).Return(nil, fitfile.ErrUnsupported)
	s.uploader.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(&domain.UploadResult{ActivityID: 3}, nil)
	s.updater.EXPECT().UpdateActivity(gomock.Any(), int64(3), gomock.Any()).
		Return(&strava.APIError{StatusCode: 404, Message: "Record Not Found"})

	report, err := s.service.UploadAll(ctx, []string{"/in/uinti.fit"})

	s.NoError(err)
	s.Equal(1, report.Failed)
	s.EqualError(report.Outcomes[0].Err, "update activity 3: strava api: status 404: Record Not Found")
}

func (s *UploadServiceTestSuite) TestUploadAll_UnknownDataTypeIsNotUploaded() {
	ctx := context.Background()

	report, err := s.service.UploadAll(ctx, []string{"/in/notes.txt"})

	s.NoError(err)
	s.Equal(1, report.Failed)
	s.ErrorIs(report.Outcomes[0].Err, domain.ErrUnknownDataType)
	s.Equal([]string{"notes.txt: error: notes.txt: unknown data type"}, s.out.Lines())
}

func (s *UploadServiceTestSuite) TestUploadAll_CancelledBeforeDispatch() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.service.UploadAll(ctx, []string{"/in/1.fit", "/in/2.fit"})

	s.ErrorIs(err, context.Canceled)
	s.Empty(report.Outcomes)
}

func (s *UploadServiceTestSuite) TestUploadAll_PublishesOutcomes() {
	ctx := context.Background()
	service := s.newService(WithPublisher(s.publisher))

	s.classifier.EXPECT().Classify(gomock.Any()).Return(nil, fitfile.ErrUnsupported).Times(2)
	s.uploader.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(&domain.UploadResult{ExternalID: "x"}, nil).Times(2)
	s.publisher.EXPECT().PublishUpload(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().PublishUpload(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("closed"))

	report, err := service.UploadAll(ctx, []string{"/in/a.gpx", "/in/b.gpx"})

	s.NoError(err)
	s.Equal(2, report.Succeeded)
}

func (s *UploadServiceTestSuite) TestUploadAll_BoundedConcurrency() {
	ctx := context.Background()
	var inFlight, maxInFlight atomic.Int32

	paths := make([]string, 12)
	for i := range paths {
		paths[i] = "/in/" + string(rune('a'+i)) + ".fit"
	}

	s.classifier.EXPECT().Classify(gomock.Any()).Return(nil, fitfile.ErrUnsupported).Times(len(paths))
	s.uploader.EXPECT().Upload(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, domain.UploadTask) (*domain.UploadResult, error) {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return &domain.UploadResult{}, nil
		},
	).Times(len(paths))

	report, err := s.service.UploadAll(ctx, paths)

	s.NoError(err)
	s.Equal(len(paths), report.Succeeded)
	s.LessOrEqual(maxInFlight.Load(), int32(DefaultConcurrency))
	s.Greater(maxInFlight.Load(), int32(1))
}
