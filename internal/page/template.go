package page

// DefaultTemplate is the content of a freshly created page: a minimal
// self-contained HTML5 document styled with the Tailwind CDN build.
const DefaultTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>New Page</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-white text-gray-900 p-10">
    <div class="max-w-3xl mx-auto">
        <h1 class="text-4xl font-bold mb-4">Welcome</h1>
        <p class="text-lg text-gray-700">Start editing your static page.</p>
    </div>
</body>
</html>`
