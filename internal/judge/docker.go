package judge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// DockerClient wraps the Docker SDK for hermetic judge execution. Running
// the suite in a container keeps the judge's Python environment independent
// of whatever the agent installed on the host.
type DockerClient struct {
	client *client.Client
}

// NewDockerClient creates a Docker client and verifies the daemon is
// reachable so a missing daemon fails before any run starts.
func NewDockerClient() (*DockerClient, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("docker daemon not accessible (is Docker running?): %w", err)
	}

	return &DockerClient{client: cli}, nil
}

// Close closes the Docker client.
func (d *DockerClient) Close() error {
	return d.client.Close()
}

// EnsureImage makes sure the judge image is available locally, pulling it
// when allowed.
func (d *DockerClient) EnsureImage(ctx context.Context, imageName string, autoPull bool) error {
	images, err := d.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return nil
			}
		}
	}

	if !autoPull {
		return fmt.Errorf("judge image %s not found locally and auto-pull is disabled", imageName)
	}

	reader, err := d.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling judge image %s: %w", imageName, err)
	}
	defer func() { _ = reader.Close() }()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("reading pull response: %w", err)
	}
	return nil
}

type copyResult struct {
	err error
}

// RunSuite executes the judge command in a throwaway container with the
// workdir bind-mounted at /workspace. Networking is disabled; the judge
// scores code, it does not fetch anything.
func (d *DockerClient) RunSuite(ctx context.Context, imageName, workdir string, cmd []string, timeout time.Duration) (exitCode int, output string, err error) {
	createCtx, createCancel := context.WithTimeout(ctx, 30*time.Second)
	defer createCancel()

	resp, err := d.client.ContainerCreate(createCtx,
		&container.Config{
			Image:           imageName,
			Cmd:             []string{"sleep", "infinity"},
			WorkingDir:      "/workspace",
			NetworkDisabled: true,
		},
		&container.HostConfig{
			Mounts: []mount.Mount{{
				Type:   mount.TypeBind,
				Source: workdir,
				Target: "/workspace",
			}},
		},
		nil, nil, fmt.Sprintf("bakeoff-judge-%d", time.Now().UnixNano()))
	if err != nil {
		return -1, "", fmt.Errorf("creating judge container: %w", err)
	}
	containerID := resp.ID
	defer func() {
		_ = d.client.ContainerRemove(context.Background(), containerID, container.RemoveOptions{Force: true})
	}()

	if err := d.client.ContainerStart(createCtx, containerID, container.StartOptions{}); err != nil {
		return -1, "", fmt.Errorf("starting judge container: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execResp, err := d.client.ContainerExecCreate(execCtx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   "/workspace",
	})
	if err != nil {
		return -1, "", fmt.Errorf("creating judge exec: %w", err)
	}

	attachResp, err := d.client.ContainerExecAttach(execCtx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return -1, "", fmt.Errorf("attaching to judge exec: %w", err)
	}

	// stdcopy.StdCopy blocks until EOF and ignores context cancellation,
	// so it runs in a goroutine and the connection is closed on timeout.
	var buf bytes.Buffer
	var bufMu sync.Mutex
	copyDone := make(chan copyResult, 1)
	go func() {
		bufMu.Lock()
		_, copyErr := stdcopy.StdCopy(&buf, &buf, attachResp.Reader)
		bufMu.Unlock()
		copyDone <- copyResult{err: copyErr}
	}()

	select {
	case res := <-copyDone:
		attachResp.Close()
		if res.err != nil {
			return -1, buf.String(), fmt.Errorf("reading judge output: %w", res.err)
		}
	case <-execCtx.Done():
		attachResp.Close()
		<-copyDone
		bufMu.Lock()
		out := buf.String()
		bufMu.Unlock()
		return -1, out, fmt.Errorf("judge timed out after %v", timeout)
	}

	// Fresh context for the inspect: execCtx may be nearly expired
	inspectCtx, inspectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer inspectCancel()
	for {
		inspect, err := d.client.ContainerExecInspect(inspectCtx, execResp.ID)
		if err != nil {
			return -1, buf.String(), fmt.Errorf("inspecting judge exec: %w", err)
		}
		if !inspect.Running {
			return inspect.ExitCode, buf.String(), nil
		}
		select {
		case <-inspectCtx.Done():
			return -1, buf.String(), fmt.Errorf("timeout waiting for judge exit code")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
